package lexrag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/juridai/lexrag/blobstore"
	"github.com/juridai/lexrag/chunker"
	"github.com/juridai/lexrag/document"
	"github.com/juridai/lexrag/model"
	"github.com/juridai/lexrag/provider"
	"github.com/juridai/lexrag/vectorindex"
)

// embedConcurrency bounds parallel embedding calls during ingestion.
const embedConcurrency = 4

// embedChunk is how many passages one embedding call carries.
const embedChunk = 16

// Answer is the result of one retrieval-augmented query: the generated
// text and the exact ordered passages that were given to the model as
// context, for citation display.
type Answer struct {
	Text    string
	Sources []model.Passage
}

// Engine owns the vector index handle and runs the two core operations:
// document ingestion and retrieval-augmented answering.
//
// The index is lazily materialized from durable storage on first use.
// Ingestions are serialized by a single-writer lock held only around the
// insert+persist step; provider calls never run under it. Queries read the
// index lock-free and may miss an insertion that completes after they begin.
type Engine struct {
	embedder  provider.Embedder
	generator provider.Generator
	store     blobstore.BlobStore
	opts      options

	// Lazy load state machine: idx stays nil until the first ingest or
	// query; concurrent first callers share one in-flight load.
	loadGroup singleflight.Group
	loaded    atomic.Bool
	idx       atomic.Pointer[vectorindex.Index]

	// ingestMu serializes insert+persist so one writer's snapshot can
	// never be overwritten by a stale in-memory copy from another.
	ingestMu sync.Mutex
}

// New creates an Engine. All three collaborators are required; a missing
// one fails with ErrNotConfigured so a misconfigured deployment is caught
// before any work is accepted.
func New(embedder provider.Embedder, generator provider.Generator, store blobstore.BlobStore, optFns ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is nil", ErrNotConfigured)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is nil", ErrNotConfigured)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: blob store is nil", ErrNotConfigured)
	}

	opts := applyOptions(optFns)
	if opts.chunkSize <= 0 || opts.chunkOverlap < 0 || opts.chunkOverlap >= opts.chunkSize {
		return nil, &chunker.ErrInvalidOptions{ChunkSize: opts.chunkSize, Overlap: opts.chunkOverlap}
	}
	if opts.retrievalK <= 0 {
		return nil, vectorindex.ErrInvalidK
	}

	return &Engine{
		embedder:  embedder,
		generator: generator,
		store:     store,
		opts:      opts,
	}, nil
}

// Ingest loads the document at path, splits it into passages, embeds them,
// appends them to the vector index, and persists the index snapshot. It
// returns the number of passages inserted; zero is a valid, non-error
// result for an empty document.
//
// Ingestion is atomic at the document granularity: a load, chunk, or
// embedding failure aborts before any index mutation. The caller owns the
// uploaded file and deletes it regardless of outcome.
func (e *Engine) Ingest(ctx context.Context, path string) (int, error) {
	count, err := e.ingest(ctx, path)
	e.opts.logger.LogIngest(ctx, path, count, err)
	return count, err
}

func (e *Engine) ingest(ctx context.Context, path string) (int, error) {
	docs, err := document.Load(path)
	if err != nil {
		return 0, err
	}

	var passages []model.Passage
	for _, doc := range docs {
		split, err := chunker.Split(doc.Text, doc.Metadata, func(o *chunker.Options) {
			o.ChunkSize = e.opts.chunkSize
			o.Overlap = e.opts.chunkOverlap
		})
		if err != nil {
			return 0, err
		}
		passages = append(passages, split...)
	}
	if len(passages) == 0 {
		return 0, nil
	}

	// Embed everything before touching the index: the dominant latency
	// must not run under the ingest lock, and a partial embedding failure
	// must abort with no index mutation.
	vectors, err := e.embedPassages(ctx, passages)
	if err != nil {
		return 0, err
	}

	batch := make([]model.IndexedVector, len(passages))
	for n := range passages {
		batch[n] = model.IndexedVector{Vector: vectors[n], Passage: passages[n]}
	}

	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	if err := e.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	idx := e.idx.Load()
	if idx == nil {
		created, err := vectorindex.New(len(vectors[0]))
		if err != nil {
			return 0, err
		}
		idx = created
	}

	if err := idx.Insert(batch); err != nil {
		return 0, err
	}
	if err := e.persist(ctx, idx); err != nil {
		return 0, err
	}
	e.idx.Store(idx)

	return len(batch), nil
}

// embedPassages embeds all passages in bounded-concurrency batches,
// preserving passage order. Any failed batch aborts the whole ingestion.
func (e *Engine) embedPassages(ctx context.Context, passages []model.Passage) ([][]float32, error) {
	vectors := make([][]float32, len(passages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(passages); start += embedChunk {
		end := min(start+embedChunk, len(passages))
		g.Go(func() error {
			texts := make([]string, end-start)
			for n := start; n < end; n++ {
				texts[n-start] = passages[n].Text
			}
			embedded, err := e.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return err
			}
			if len(embedded) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), end-start)
			}
			copy(vectors[start:end], embedded)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Answer embeds the question, retrieves the top-k nearest passages,
// composes a grounded prompt, and returns the generated answer together
// with the exact ordered passages used as context.
//
// Querying before any document was ever ingested fails with
// ErrKnowledgeBaseEmpty without a single provider call; the chat layer
// converts that into a friendly non-error response. A model answer that
// declines for lack of context is a normal response, not an error.
func (e *Engine) Answer(ctx context.Context, question string) (*Answer, error) {
	answer, err := e.answer(ctx, question)
	sources := 0
	if answer != nil {
		sources = len(answer.Sources)
	}
	e.opts.logger.LogQuery(ctx, e.opts.retrievalK, sources, err)
	return answer, err
}

func (e *Engine) answer(ctx context.Context, question string) (*Answer, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	idx := e.idx.Load()
	if idx == nil || idx.Len() == 0 {
		return nil, ErrKnowledgeBaseEmpty
	}

	queryVec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := idx.Search(queryVec, e.opts.retrievalK)
	if err != nil {
		return nil, translateError(err)
	}

	sources := make([]model.Passage, len(results))
	for n, r := range results {
		sources[n] = r.Passage
	}

	text, err := e.generator.Generate(ctx, composePrompt(sources, question))
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Sources: sources}, nil
}

// ensureLoaded materializes the index from durable storage exactly once.
// Concurrent callers during the load await the same in-flight attempt. A
// missing snapshot is the empty initial state, not an error; an unreadable
// one surfaces as storage corruption and leaves the engine unloaded so a
// repaired file can be retried.
func (e *Engine) ensureLoaded(ctx context.Context) error {
	if e.loaded.Load() {
		return nil
	}

	_, err, _ := e.loadGroup.Do("load", func() (any, error) {
		if e.loaded.Load() {
			return nil, nil
		}

		data, err := e.store.Get(ctx, e.opts.snapshotName)
		if errors.Is(err, blobstore.ErrNotFound) {
			e.loaded.Store(true)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		idx, err := vectorindex.ReadSnapshot(bytes.NewReader(data))
		e.opts.logger.LogLoad(ctx, e.opts.snapshotName, indexLen(idx), err)
		if err != nil {
			return nil, err
		}

		e.idx.Store(idx)
		e.loaded.Store(true)
		return nil, nil
	})
	return err
}

// persist writes the index snapshot to durable storage, replacing the
// previous blob atomically. Called with the ingest lock held.
func (e *Engine) persist(ctx context.Context, idx *vectorindex.Index) error {
	var buf bytes.Buffer
	err := idx.WriteSnapshot(&buf, func(o *vectorindex.SnapshotOptions) {
		o.Codec = e.opts.codec
		o.Compression = e.opts.compression
	})
	if err == nil {
		err = e.store.Put(ctx, e.opts.snapshotName, buf.Bytes())
	}
	e.opts.logger.LogSnapshot(ctx, e.opts.snapshotName, indexLen(idx), err)
	return err
}

func indexLen(idx *vectorindex.Index) int {
	if idx == nil {
		return 0
	}
	return idx.Len()
}
