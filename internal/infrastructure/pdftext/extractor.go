// Package pdftext implements the PDF-to-text boundary page by page.
package pdftext

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/flowbit-labs/intake-agent/internal/core/domain"
)

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// ExtractPages returns per-page text. A page whose extraction fails
// contributes a PDFPage with Err set; only a document that cannot be
// opened at all yields an error.
func (e *Extractor) ExtractPages(ctx context.Context, raw []byte) ([]domain.PDFPage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]domain.PDFPage, 0, total)
	for num := 1; num <= total; num++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		pages = append(pages, extractPage(reader, num))
	}
	return pages, nil
}

// extractPage isolates one page; the pdf library panics on some
// malformed content streams, which must degrade to a page marker.
func extractPage(reader *pdf.Reader, num int) (result domain.PDFPage) {
	result = domain.PDFPage{Number: num}
	defer func() {
		if r := recover(); r != nil {
			result.Text = ""
			result.Err = fmt.Sprintf("page content panic: %v", r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		result.Err = "page unavailable"
		return result
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	result.Text = text
	return result
}
