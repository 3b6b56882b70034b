package vectorindex

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/juridai/lexrag/model"
)

func passage(text, source string) model.Passage {
	return model.Passage{
		Text:     text,
		Metadata: map[string]any{model.MetaSource: source},
	}
}

func TestNew_InvalidDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		_, err := New(dim)
		var invalid *ErrInvalidDimension
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, dim, invalid.Dimension)
	}
}

func TestIndex_InsertAndSearch(t *testing.T) {
	idx, err := New(3)
	require.NoError(t, err)

	err = idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0, 0}, Passage: passage("article one", "code.txt")},
		{Vector: []float32{0, 1, 0}, Passage: passage("article two", "code.txt")},
		{Vector: []float32{0.9, 0.1, 0}, Passage: passage("article three", "code.txt")},
	})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	results, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Closest first.
	require.Equal(t, "article one", results[0].Passage.Text)
	require.Equal(t, "article three", results[1].Passage.Text)
	require.Greater(t, results[0].Score, results[1].Score)
}

func TestIndex_SearchReturnsAtMostLen(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0}, Passage: passage("only one", "a.txt")},
	}))

	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestIndex_SearchEmpty(t *testing.T) {
	idx, err := New(4)
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0, 0, 0}, 4)
	require.ErrorIs(t, err, ErrEmptyIndex)
}

func TestIndex_SearchInvalidK(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0}, Passage: passage("p", "a.txt")},
	}))

	for _, k := range []int{0, -3} {
		_, err := idx.Search([]float32{1, 0}, k)
		require.ErrorIs(t, err, ErrInvalidK)
	}
}

func TestIndex_DimensionMismatchIsAtomic(t *testing.T) {
	idx, err := New(3)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0, 0}, Passage: passage("first", "a.txt")},
	}))

	before := idx.Len()

	// Batch with a stray 2-dimensional vector in the middle.
	err = idx.Insert([]model.IndexedVector{
		{Vector: []float32{0, 1, 0}, Passage: passage("ok", "a.txt")},
		{Vector: []float32{1, 1}, Passage: passage("bad", "a.txt")},
		{Vector: []float32{0, 0, 1}, Passage: passage("ok too", "a.txt")},
	})

	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, 3, mismatch.Expected)
	require.Equal(t, 2, mismatch.Actual)

	// No partial insertion.
	require.Equal(t, before, idx.Len())
}

func TestIndex_SearchDimensionMismatch(t *testing.T) {
	idx, err := New(3)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0, 0}, Passage: passage("p", "a.txt")},
	}))

	_, err = idx.Search([]float32{1, 0}, 1)
	var mismatch *ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestIndex_SourceFilteredSearch(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0}, Passage: passage("penal a", "penal.pdf")},
		{Vector: []float32{0.9, 0.1}, Passage: passage("famille a", "famille.pdf")},
		{Vector: []float32{0.8, 0.2}, Passage: passage("penal b", "penal.pdf")},
	}))

	results, err := idx.Search([]float32{1, 0}, 3, WithSources("penal.pdf"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, "penal.pdf", r.Passage.Source())
	}

	require.ElementsMatch(t, []string{"penal.pdf", "famille.pdf"}, idx.Sources())
}

func TestIndex_ConcurrentInsertersLoseNothing(t *testing.T) {
	idx, err := New(4)
	require.NoError(t, err)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			source := fmt.Sprintf("doc-%d.txt", w)
			for n := range perWriter {
				err := idx.Insert([]model.IndexedVector{{
					Vector:  []float32{float32(w), float32(n), 1, 0},
					Passage: passage(fmt.Sprintf("w%d n%d", w, n), source),
				}})
				require.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, writers*perWriter, idx.Len())

	// A sufficiently large k surfaces passages from every document.
	results, err := idx.Search([]float32{1, 1, 1, 0}, writers*perWriter)
	require.NoError(t, err)
	require.Len(t, results, writers*perWriter)

	seen := make(map[string]bool)
	for _, r := range results {
		seen[r.Passage.Source()] = true
	}
	require.Len(t, seen, writers)
}

func TestIndex_ReadersSeeConsistentSnapshots(t *testing.T) {
	idx, err := New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Insert([]model.IndexedVector{
		{Vector: []float32{1, 0}, Passage: passage("seed", "seed.txt")},
	}))

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Readers race the writer; every search must be internally consistent
	// (no error, non-empty, scores ordered).
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				results, err := idx.Search([]float32{1, 0}, 5)
				require.NoError(t, err)
				require.NotEmpty(t, results)
				for n := 1; n < len(results); n++ {
					require.GreaterOrEqual(t, results[n-1].Score, results[n].Score)
				}
			}
		}()
	}

	for n := range 200 {
		require.NoError(t, idx.Insert([]model.IndexedVector{
			{Vector: []float32{float32(n), 1}, Passage: passage("more", "more.txt")},
		}))
	}
	close(done)
	wg.Wait()

	require.Equal(t, 201, idx.Len())
}

func TestIndex_ErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ErrStorageCorruption{Reason: "test", cause: cause}
	require.ErrorIs(t, err, cause)
}
