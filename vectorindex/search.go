package vectorindex

import (
	"container/heap"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/juridai/lexrag/model"
)

// SearchOptions controls the execution of a search.
type SearchOptions struct {
	// Sources restricts results to passages originating from the named
	// source files. Empty means no restriction.
	Sources []string
}

// WithSources restricts a search to passages from the named source files.
func WithSources(names ...string) func(o *SearchOptions) {
	return func(o *SearchOptions) {
		o.Sources = names
	}
}

// Search returns the k nearest passages to query, closest first.
//
// The query must match the index dimension. Searching an empty index fails
// with ErrEmptyIndex. Fewer than k results are returned only when the index
// (or the source-filtered subset) holds fewer vectors.
func (i *Index) Search(query []float32, k int, optFns ...func(o *SearchOptions)) ([]model.Result, error) {
	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != i.dimension {
		return nil, &ErrDimensionMismatch{Expected: i.dimension, Actual: len(query)}
	}

	st := i.getState()
	if len(st.vectors) == 0 {
		return nil, ErrEmptyIndex
	}

	var filter *roaring.Bitmap
	if len(opts.Sources) > 0 {
		filter = roaring.New()
		for _, name := range opts.Sources {
			if bm, ok := st.sources[name]; ok {
				filter.Or(bm)
			}
		}
	}

	q := normalizeL2Copy(query)

	// Min-heap of the best k candidates: the root is the worst kept hit
	// and is evicted when a closer one arrives.
	h := make(candidateHeap, 0, k+1)
	for id, vec := range st.vectors {
		if filter != nil && !filter.Contains(uint32(id)) {
			continue
		}
		score := dot(q, vec)
		heap.Push(&h, candidate{id: uint32(id), score: score})
		if h.Len() > k {
			heap.Pop(&h)
		}
	}

	results := make([]model.Result, h.Len())
	for n := h.Len() - 1; n >= 0; n-- {
		c := heap.Pop(&h).(candidate)
		results[n] = model.Result{Passage: st.passages[c.id], Score: c.score}
	}
	return results, nil
}

type candidate struct {
	id    uint32
	score float32
}

type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }

// Less orders by ascending score so the heap root is the worst candidate.
// Ties break on higher id so equal-score results surface in insertion order.
func (h candidateHeap) Less(a, b int) bool {
	if h[a].score != h[b].score {
		return h[a].score < h[b].score
	}
	return h[a].id > h[b].id
}

func (h candidateHeap) Swap(a, b int) { h[a], h[b] = h[b], h[a] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
