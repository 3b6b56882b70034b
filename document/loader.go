// Package document loads uploaded files into plain text for chunking.
//
// The loader is selected by file extension: ".pdf" goes through PDF text
// extraction, everything else is read as plain text. Unknown extensions are
// deliberately not rejected — the plain-text fallback may yield garbled
// passages for binary formats, which is an accepted simplification of the
// upload policy rather than something to silently "fix" here.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juridai/lexrag/model"
)

// Document is the loaded text of one logical unit of a source file.
// Plain-text files load as a single document; PDFs load one document per
// page so page numbers survive into passage provenance.
type Document struct {
	Text     string
	Metadata map[string]any
}

// LoadError indicates the source file could not be read or parsed.
// It always surfaces before any index mutation.
type LoadError struct {
	Path  string
	cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load document %s: %v", e.Path, e.cause)
}

func (e *LoadError) Unwrap() error { return e.cause }

// Load reads the file at path and returns its text content.
func Load(path string) ([]Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return loadPDF(path)
	}
	return loadText(path)
}

func loadText(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, cause: err}
	}
	return []Document{{
		Text:     string(data),
		Metadata: map[string]any{model.MetaSource: filepath.Base(path)},
	}}, nil
}
