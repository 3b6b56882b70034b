// Package vectorindex provides the durable nearest-neighbor structure over
// embedded passages: an exact flat index with cosine scoring, copy-on-write
// concurrent reads, and self-describing snapshot persistence.
package vectorindex

import (
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/juridai/lexrag/model"
)

// indexState is the immutable state of the index for lock-free reads.
// Writers clone it, mutate the clone, and publish it atomically, so a
// search that began before an insertion completes keeps reading a
// consistent pre-insertion snapshot.
type indexState struct {
	vectors  [][]float32
	passages []model.Passage
	// sources maps a source file name to the set of passage ids that
	// originate from it, for source-filtered search.
	sources map[string]*roaring.Bitmap
}

// Index is an exact (flat) nearest-neighbor index over cosine similarity.
//
// All stored vectors share one dimension, fixed at creation; mixing
// dimensions fails fast. The index is append-only: no deletion or update.
// It uses a copy-on-write pattern for lock-free concurrent reads; writes
// are serialized by an internal mutex.
type Index struct {
	state     atomic.Value // holds *indexState
	writeMu   sync.Mutex   // serializes writes only
	dimension int
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}
	idx := &Index{dimension: dimension}
	idx.state.Store(&indexState{sources: make(map[string]*roaring.Bitmap)})
	return idx, nil
}

// Dimension returns the fixed vector dimension of the index.
func (i *Index) Dimension() int { return i.dimension }

// Len returns the number of stored vectors.
func (i *Index) Len() int {
	return len(i.getState().vectors)
}

// Sources returns the distinct source file names of the stored passages.
func (i *Index) Sources() []string {
	st := i.getState()
	out := make([]string, 0, len(st.sources))
	for name := range st.sources {
		out = append(out, name)
	}
	return out
}

// Insert appends a batch of indexed vectors.
//
// The batch is validated in full before any mutation: if any vector's
// dimension differs from the index dimension, Insert fails with
// ErrDimensionMismatch and the index is unchanged (atomic per call).
// Vectors are stored L2-normalized so that dot-product search yields
// cosine similarity.
func (i *Index) Insert(batch []model.IndexedVector) error {
	if len(batch) == 0 {
		return nil
	}

	for _, iv := range batch {
		if len(iv.Vector) != i.dimension {
			return &ErrDimensionMismatch{Expected: i.dimension, Actual: len(iv.Vector)}
		}
	}

	normalized := make([][]float32, len(batch))
	for n, iv := range batch {
		normalized[n] = normalizeL2Copy(iv.Vector)
	}

	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	old := i.getState()
	next := old.clone()

	for n, iv := range batch {
		id := uint32(len(next.vectors))
		next.vectors = append(next.vectors, normalized[n])
		next.passages = append(next.passages, iv.Passage)

		if source := iv.Passage.Source(); source != "" {
			bm, ok := next.sources[source]
			if !ok {
				bm = roaring.New()
				next.sources[source] = bm
			}
			bm.Add(id)
		}
	}

	i.state.Store(next)
	return nil
}

func (i *Index) getState() *indexState {
	return i.state.Load().(*indexState)
}

// clone makes a copy-on-write snapshot of the state. Vector and passage
// slices share backing entries (both are immutable once stored); the
// slice headers and bitmaps are copied so the old state stays frozen.
func (st *indexState) clone() *indexState {
	next := &indexState{
		vectors:  make([][]float32, len(st.vectors), len(st.vectors)+16),
		passages: make([]model.Passage, len(st.passages), len(st.passages)+16),
		sources:  make(map[string]*roaring.Bitmap, len(st.sources)),
	}
	copy(next.vectors, st.vectors)
	copy(next.passages, st.passages)
	for name, bm := range st.sources {
		next.sources[name] = bm.Clone()
	}
	return next
}
