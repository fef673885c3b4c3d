// Package document extracts plain text from the binary formats accepted for
// classification.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/infrastructure/extractor/plaintext"
)

const (
	DefaultPDFMaxPages = 20
	DefaultOCRLanguage = "eng"

	// scannedPDFMinChars is the amount of machine text below which a PDF is
	// treated as a scan.
	scannedPDFMinChars = 50
)

type Config struct {
	PDFMaxPages int
	OCRLanguage string
}

// OCR turns an image into text.
type OCR interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

type Extractor struct {
	cfg Config
	ocr OCR
}

// New builds an extractor. A nil ocr disables image extraction; images then
// yield domain.ErrUnsupportedFormat.
func New(cfg Config, ocr OCR) *Extractor {
	if cfg.PDFMaxPages <= 0 {
		cfg.PDFMaxPages = DefaultPDFMaxPages
	}
	if strings.TrimSpace(cfg.OCRLanguage) == "" {
		cfg.OCRLanguage = DefaultOCRLanguage
	}
	return &Extractor{cfg: cfg, ocr: ocr}
}

func (e *Extractor) Extract(ctx context.Context, upload domain.Upload, ext string) (text string, err error) {
	// The PDF and OOXML parsers panic on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "extractor_panic", "extension", ext, "panic", r, "stack", string(debug.Stack()))
			text, err = "", fmt.Errorf("extract %s: parser panic: %v", ext, r)
		}
	}()

	switch strings.ToLower(ext) {
	case ".pdf":
		return e.extractPDF(ctx, upload)
	case ".docx":
		return extractDOCX(upload)
	case ".xlsx":
		return extractXLSX(upload)
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp", ".gif":
		return e.extractImage(ctx, upload)
	case ".txt", ".csv", ".md":
		return plaintext.Extract(upload.Reader(), plaintext.DefaultLimit)
	default:
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("no extractor for %q", ext))
	}
}

// PagesToOCR is the number of leading pages of a scanned document worth
// running OCR on: the whole of a one-page scan, two pages of a short one,
// three of anything longer.
func PagesToOCR(totalPages int) int {
	switch {
	case totalPages <= 0:
		return 0
	case totalPages == 1:
		return 1
	case totalPages <= 5:
		return 2
	default:
		return 3
	}
}
