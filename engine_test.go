package lexrag

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/juridai/lexrag/blobstore"
	"github.com/juridai/lexrag/document"
	"github.com/juridai/lexrag/model"
	"github.com/juridai/lexrag/vectorindex"
)

const fakeDimension = 16

// fakeEmbedder produces deterministic token-bucket vectors so identical
// text always embeds identically. It counts calls to verify that the
// empty-knowledge-base path performs no provider work.
type fakeEmbedder struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *fakeEmbedder) embed(text string) []float32 {
	vec := make([]float32, fakeDimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%fakeDimension]++
	}
	return vec
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	return f.embed(text), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for n, text := range texts {
		out[n] = f.embed(text)
	}
	return out, nil
}

// fakeGenerator answers with a fixed preamble plus the prompt's context so
// tests can check text overlap with the source passage.
type fakeGenerator struct {
	calls atomic.Int32
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return "Based on the provided context: " + prompt, nil
}

func newTestEngine(t *testing.T, optFns ...Option) (*Engine, *fakeEmbedder, *fakeGenerator, *blobstore.MemoryStore) {
	t.Helper()
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{}
	store := blobstore.NewMemoryStore()
	engine, err := New(embedder, generator, store, optFns...)
	require.NoError(t, err)
	return engine, embedder, generator, store
}

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_MissingCollaborators(t *testing.T) {
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{}
	store := blobstore.NewMemoryStore()

	_, err := New(nil, generator, store)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = New(embedder, nil, store)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = New(embedder, generator, nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNew_InvalidChunking(t *testing.T) {
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{}
	store := blobstore.NewMemoryStore()

	_, err := New(embedder, generator, store, WithChunkSize(100), WithChunkOverlap(100))
	require.Error(t, err)

	_, err = New(embedder, generator, store, WithRetrievalK(0))
	require.ErrorIs(t, err, vectorindex.ErrInvalidK)
}

func TestAnswer_BeforeAnyIngestion(t *testing.T) {
	engine, embedder, generator, _ := newTestEngine(t)

	_, err := engine.Answer(context.Background(), "what does the law say?")
	require.ErrorIs(t, err, ErrKnowledgeBaseEmpty)

	// The empty knowledge base is detected before any provider call.
	require.Zero(t, embedder.calls.Load())
	require.Zero(t, generator.calls.Load())
}

func TestIngestThenAnswer_EndToEnd(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	content := "The labour code applies to all employees. Article 6 defines the employment contract."
	path := writeTempDoc(t, "labour.txt", content)

	count, err := engine.Ingest(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 1, count) // two sentences fit one 1000-char chunk

	answer, err := engine.Answer(ctx, "what does the document say")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	require.Equal(t, content, answer.Sources[0].Text)
	require.Equal(t, "labour.txt", answer.Sources[0].Source())
	require.Contains(t, answer.Text, content)
}

func TestIngest_EmptyDocumentIsZeroChunks(t *testing.T) {
	engine, embedder, _, store := newTestEngine(t)
	ctx := context.Background()

	path := writeTempDoc(t, "empty.txt", "   \n\t  ")

	count, err := engine.Ingest(ctx, path)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Zero(t, embedder.calls.Load())

	// Zero chunks means no index mutation and no snapshot.
	_, err = store.Get(ctx, DefaultSnapshotName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	_, err = engine.Answer(ctx, "anything")
	require.ErrorIs(t, err, ErrKnowledgeBaseEmpty)
}

func TestIngest_MissingFile(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Ingest(ctx, filepath.Join(t.TempDir(), "absent.txt"))
	var loadErr *document.LoadError
	require.ErrorAs(t, err, &loadErr)

	_, err = store.Get(ctx, DefaultSnapshotName)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestIngest_EmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	engine, embedder, _, store := newTestEngine(t)
	ctx := context.Background()

	first := writeTempDoc(t, "first.txt", "Article 1. The first document.")
	count, err := engine.Ingest(ctx, first)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	snapshotBefore, err := store.Get(ctx, DefaultSnapshotName)
	require.NoError(t, err)

	embedder.fail.Store(true)
	second := writeTempDoc(t, "second.txt", "Article 2. The second document.")
	_, err = engine.Ingest(ctx, second)
	require.Error(t, err)

	// The persisted snapshot is unchanged by the failed ingestion.
	snapshotAfter, err := store.Get(ctx, DefaultSnapshotName)
	require.NoError(t, err)
	require.Equal(t, snapshotBefore, snapshotAfter)

	embedder.fail.Store(false)
	answer, err := engine.Answer(ctx, "first document")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
}

func TestIngest_MultipleDocumentsAccumulate(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, WithRetrievalK(8))
	ctx := context.Background()

	for n := range 3 {
		path := writeTempDoc(t, fmt.Sprintf("doc%d.txt", n),
			fmt.Sprintf("Document number %d about topic %d.", n, n))
		count, err := engine.Ingest(ctx, path)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	}

	answer, err := engine.Answer(ctx, "document topic")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 3)
}

func TestIngest_ConcurrentDocumentsLoseNothing(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, WithRetrievalK(32))
	ctx := context.Background()

	const docs = 6
	paths := make([]string, docs)
	dir := t.TempDir()
	for n := range docs {
		paths[n] = filepath.Join(dir, fmt.Sprintf("concurrent-%d.txt", n))
		content := fmt.Sprintf("Concurrent document %d with its own distinct subject matter.", n)
		require.NoError(t, os.WriteFile(paths[n], []byte(content), 0o644))
	}

	var wg sync.WaitGroup
	for n := range docs {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			count, err := engine.Ingest(ctx, paths[n])
			require.NoError(t, err)
			require.Equal(t, 1, count)
		}(n)
	}
	wg.Wait()

	answer, err := engine.Answer(ctx, "concurrent document subject matter")
	require.NoError(t, err)
	require.Len(t, answer.Sources, docs)

	seen := make(map[string]bool)
	for _, src := range answer.Sources {
		seen[src.Source()] = true
	}
	require.Len(t, seen, docs)
}

func TestEngine_IndexSurvivesRestart(t *testing.T) {
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{}
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	first, err := New(embedder, generator, store)
	require.NoError(t, err)

	content := "Article 19. Ownership transfers on delivery."
	path := writeTempDoc(t, "civil.txt", content)
	_, err = first.Ingest(ctx, path)
	require.NoError(t, err)

	// A fresh engine over the same store lazily reloads the snapshot.
	second, err := New(embedder, generator, store)
	require.NoError(t, err)

	answer, err := second.Answer(ctx, "ownership transfer delivery")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	require.Equal(t, content, answer.Sources[0].Text)
}

func TestEngine_CorruptSnapshotSurfaces(t *testing.T) {
	engine, _, _, store := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, DefaultSnapshotName, []byte("definitely not a snapshot")))

	_, err := engine.Answer(ctx, "anything")
	var corrupt *vectorindex.ErrStorageCorruption
	require.ErrorAs(t, err, &corrupt)

	// Ingestion hits the same corrupted load and must not overwrite it.
	path := writeTempDoc(t, "doc.txt", "some text")
	_, err = engine.Ingest(ctx, path)
	require.ErrorAs(t, err, &corrupt)

	blob, err := store.Get(ctx, DefaultSnapshotName)
	require.NoError(t, err)
	require.Equal(t, []byte("definitely not a snapshot"), blob)
}

func TestEngine_ConcurrentFirstCallersShareOneLoad(t *testing.T) {
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{}
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	seed, err := New(embedder, generator, store)
	require.NoError(t, err)
	path := writeTempDoc(t, "seed.txt", "Seed document for the shared load test.")
	_, err = seed.Ingest(ctx, path)
	require.NoError(t, err)

	engine, err := New(embedder, generator, store)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, err := engine.Answer(ctx, "seed document")
			require.NoError(t, err)
			require.NotEmpty(t, answer.Sources)
		}()
	}
	wg.Wait()
}

func TestComposePrompt_Grounding(t *testing.T) {
	sources := []model.Passage{
		{Text: "Article 6 defines the employment contract.", Metadata: map[string]any{model.MetaSource: "labour.txt"}},
		{Text: "Article 19 governs ownership transfer.", Metadata: map[string]any{model.MetaSource: "civil.txt"}},
	}

	prompt := composePrompt(sources, "what is an employment contract?")
	require.Contains(t, prompt, sources[0].Text)
	require.Contains(t, prompt, sources[1].Text)
	require.Contains(t, prompt, "what is an employment contract?")
	require.Less(t, strings.Index(prompt, sources[0].Text), strings.Index(prompt, sources[1].Text))
}
