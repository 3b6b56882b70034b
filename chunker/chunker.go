// Package chunker splits loaded document text into overlapping fixed-size
// passages for embedding and retrieval.
//
// Windows overlap so that context spanning a chunk boundary is not lost to
// retrieval. Splitting is deterministic for identical input and identical
// options.
package chunker

import (
	"fmt"
	"strings"

	"github.com/juridai/lexrag/model"
)

// Options contains configuration options for splitting.
type Options struct {
	// ChunkSize is the passage size in characters (runes). Must be > 0.
	ChunkSize int

	// Overlap is the number of characters shared between consecutive
	// passages. Must satisfy 0 <= Overlap < ChunkSize.
	Overlap int
}

// DefaultOptions contains the default splitting configuration.
var DefaultOptions = Options{
	ChunkSize: 1000,
	Overlap:   200,
}

// ErrInvalidOptions indicates a chunk size / overlap combination that would
// produce degenerate or non-terminating splitting.
type ErrInvalidOptions struct {
	ChunkSize int
	Overlap   int
}

func (e *ErrInvalidOptions) Error() string {
	return fmt.Sprintf("invalid chunking options: size %d, overlap %d", e.ChunkSize, e.Overlap)
}

// Split cuts text into overlapping passages of at most ChunkSize characters.
//
// Every produced passage carries a copy of metadata so provenance (source
// file, page) survives into the index. Empty or whitespace-only text yields
// zero passages and a nil error; callers must treat that as a distinguishable
// zero-chunk outcome, not a failure.
func Split(text string, metadata map[string]any, optFns ...func(o *Options)) ([]model.Passage, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ChunkSize <= 0 || opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		return nil, &ErrInvalidOptions{ChunkSize: opts.ChunkSize, Overlap: opts.Overlap}
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := opts.ChunkSize - opts.Overlap

	var passages []model.Passage
	for start := 0; ; start += step {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		passages = append(passages, model.Passage{
			Text:     string(runes[start:end]),
			Metadata: cloneMetadata(metadata),
		})
		if end == len(runes) {
			break
		}
	}
	return passages, nil
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
