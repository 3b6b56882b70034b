package lexrag

import (
	"log/slog"

	"github.com/juridai/lexrag/codec"
	"github.com/juridai/lexrag/vectorindex"
)

// DefaultSnapshotName is the blob name of the persisted index.
const DefaultSnapshotName = "index.lxs"

type options struct {
	chunkSize    int
	chunkOverlap int
	retrievalK   int
	snapshotName string
	codec        codec.Codec
	compression  string
	logger       *Logger
}

// Option configures Engine behavior.
type Option func(*options)

// WithChunkSize sets the passage size in characters (default 1000).
func WithChunkSize(size int) Option {
	return func(o *options) {
		o.chunkSize = size
	}
}

// WithChunkOverlap sets the character overlap between consecutive passages
// (default 200). Must be strictly less than the chunk size.
func WithChunkOverlap(overlap int) Option {
	return func(o *options) {
		o.chunkOverlap = overlap
	}
}

// WithRetrievalK sets how many passages a query retrieves (default 4).
func WithRetrievalK(k int) Option {
	return func(o *options) {
		o.retrievalK = k
	}
}

// WithSnapshotName overrides the blob name used for the persisted index.
func WithSnapshotName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.snapshotName = name
		}
	}
}

// WithCodec configures the codec for the passage section of new snapshots.
// If nil is passed, codec.Default is used. Existing snapshots are
// self-describing and unaffected.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression selects the snapshot compression scheme
// ("lz4", "zstd", or "none").
func WithCompression(scheme string) Option {
	return func(o *options) {
		if scheme != "" {
			o.compression = scheme
		}
	}
}

// WithLogger configures structured logging for engine operations.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		chunkSize:    1000,
		chunkOverlap: 200,
		retrievalK:   4,
		snapshotName: DefaultSnapshotName,
		codec:        codec.Default,
		compression:  vectorindex.DefaultCompression,
		logger:       NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
