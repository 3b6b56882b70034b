// Package lexrag is the document ingestion and retrieval-augmented query
// core of the Jurid-AI legal-assistance platform.
//
// # Quick Start
//
//	embedder, _ := provider.NewGoogleEmbedder(provider.GoogleConfig{APIKey: key})
//	generator, _ := provider.NewGoogleGenerator(provider.GoogleConfig{APIKey: key})
//	store := blobstore.NewLocalStore("./data")
//
//	engine, _ := lexrag.New(embedder, generator, store)
//
//	chunks, _ := engine.Ingest(ctx, "/tmp/upload/code-penal.pdf")
//	answer, _ := engine.Answer(ctx, "what does article 9 say about contracts?")
//	fmt.Println(answer.Text, len(answer.Sources))
//
// # Pipeline
//
// Ingestion flows load → chunk → embed → insert → persist: the uploaded file
// is split into overlapping passages, embedded in batches, appended to the
// vector index, and the index snapshot is atomically replaced in durable
// storage. A query embeds the question, retrieves the top-k nearest passages,
// composes a grounded prompt, and returns the generated answer together with
// the exact passages used as evidence.
//
// # Durability and Concurrency
//
// The index is a process-wide handle owned by the Engine, lazily loaded on
// first use; concurrent first callers share one in-flight load. Ingestions
// are serialized by a single-writer lock held only around insert+persist —
// never across provider calls. Searches are lock-free over copy-on-write
// state and may miss an insertion that completes after they begin.
package lexrag
