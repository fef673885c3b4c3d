package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// extractPDF reads the machine text of the first PDFMaxPages pages. A sparse
// result marks the file as a scan; those are returned as-is because pages
// cannot be rasterised in-process.
func (e *Extractor) extractPDF(ctx context.Context, upload domain.Upload) (string, error) {
	reader, err := pdf.NewReader(upload.Content, upload.Size)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	limit := min(total, e.cfg.PDFMaxPages)

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			slog.DebugContext(ctx, "pdf_page_unreadable", "page", i, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(content)
	}

	text := strings.TrimSpace(b.String())
	if len(text) < scannedPDFMinChars {
		slog.InfoContext(ctx, "pdf_text_sparse",
			"filename", upload.Filename,
			"pages", total,
			"chars", len(text),
			"ocr_pages", PagesToOCR(total),
		)
	}
	return text, nil
}
