package lexrag

import (
	"errors"

	"github.com/juridai/lexrag/vectorindex"
)

var (
	// ErrNotConfigured is returned when the engine is constructed without
	// a required provider. It fails before any chunking or index work.
	ErrNotConfigured = errors.New("engine is not fully configured")

	// ErrKnowledgeBaseEmpty is returned by Answer when no document was
	// ever ingested. It is a recoverable, user-facing condition — callers
	// present it as "knowledge base is empty", not as a system fault.
	ErrKnowledgeBaseEmpty = errors.New("knowledge base is empty")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, vectorindex.ErrEmptyIndex) {
		return ErrKnowledgeBaseEmpty
	}
	return err
}
