// Package provider holds the external model providers: text embedding and
// answer generation. Both are remote HTTP services and the dominant latency
// of the pipeline; calls are rate-limited and retried with bounded backoff,
// and must never run while the index write lock is held.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredential indicates no API credential was configured.
// Constructors fail with it so a misconfigured deployment is detected before
// any chunking or index work is attempted.
var ErrMissingCredential = errors.New("provider credential is not configured")

// Embedder maps text to fixed-dimension vectors, for both passages
// (batched, at ingestion time) and queries (single, at query time).
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a natural-language answer for a fully composed prompt.
// Stateless per call: no conversation memory is passed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error is a transport-level failure from a provider call.
//
// The underlying error (if any) can be accessed via errors.Unwrap.
type Error struct {
	Provider   string
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }
