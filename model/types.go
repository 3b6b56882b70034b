package model

import "maps"

// Metadata keys written by the document loaders.
const (
	MetaSource = "source"
	MetaPage   = "page"
)

// Passage is one chunk of ingested document text plus its provenance.
// It is immutable once created; the vector index owns it after insertion.
type Passage struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source returns the originating file name recorded by the loader,
// or "" when no provenance was captured.
func (p Passage) Source() string {
	if s, ok := p.Metadata[MetaSource].(string); ok {
		return s
	}
	return ""
}

// CloneMetadata returns a shallow copy of the passage metadata.
// Callers that denormalize passages into other records (e.g. chat
// citations) must not alias the index-owned map.
func (p Passage) CloneMetadata() map[string]any {
	if p.Metadata == nil {
		return nil
	}
	return maps.Clone(p.Metadata)
}

// IndexedVector pairs an embedding with the passage it was computed from.
// The vector dimension must match the index it is inserted into.
type IndexedVector struct {
	Vector  []float32
	Passage Passage
}

// Result is a single search hit: the matched passage and its similarity
// score (higher is closer).
type Result struct {
	Passage Passage
	Score   float32
}
