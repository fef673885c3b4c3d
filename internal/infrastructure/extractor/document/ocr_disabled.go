//go:build !ocr

package document

import (
	"errors"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// NewOCR reports that this binary was built without the ocr tag.
func NewOCR() (OCR, error) {
	return nil, domain.WrapError(domain.ErrUnsupportedFormat, "ocr", errors.New("built without the ocr tag"))
}
