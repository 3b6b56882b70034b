package document

import (
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/juridai/lexrag/model"
)

// loadPDF extracts plain text per page. Pages that contain no extractable
// text (e.g. scanned images) are skipped; a PDF whose pages are all empty
// loads as zero documents, which the ingestor reports as zero chunks.
func loadPDF(path string) ([]Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, cause: err}
	}
	defer f.Close()

	source := filepath.Base(path)

	var docs []Document
	for n := 1; n <= r.NumPage(); n++ {
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &LoadError{Path: path, cause: err}
		}
		if text == "" {
			continue
		}
		docs = append(docs, Document{
			Text: text,
			Metadata: map[string]any{
				model.MetaSource: source,
				model.MetaPage:   n,
			},
		})
	}
	return docs, nil
}
