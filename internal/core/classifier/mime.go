package classifier

import (
	"context"
	"fmt"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/core/ports"
)

// MimeValidator checks that the sniffed content type of an upload is one of
// the types configured for its declared extension.
type MimeValidator struct {
	detector  ports.ContentTypeDetector
	filetypes domain.FiletypeMap
}

func NewMimeValidator(detector ports.ContentTypeDetector, filetypes domain.FiletypeMap) *MimeValidator {
	return &MimeValidator{detector: detector, filetypes: filetypes}
}

// Check reports whether contentType is acceptable for ext. The unknown
// sentinel is never acceptable.
func (v *MimeValidator) Check(ext, contentType string) bool {
	if contentType == "" || contentType == domain.UnknownContentType {
		return false
	}
	return v.filetypes.Allows(ext, contentType)
}

// Validate sniffs the upload and returns the detected type with the verdict.
func (v *MimeValidator) Validate(ctx context.Context, upload domain.Upload, ext string) (string, bool, error) {
	contentType, err := v.detector.Detect(ctx, upload.Content, upload.Size)
	if err != nil {
		return "", false, fmt.Errorf("detect content type: %w", err)
	}
	return contentType, v.Check(ext, contentType), nil
}
