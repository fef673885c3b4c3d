package document

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// maxImageBytes keeps OCR latency and decoder memory bounded.
const maxImageBytes = 20 << 20

// extractImage decodes the upload, re-encodes it as PNG so the OCR engine
// sees one lossless format, and returns the recognised text.
func (e *Extractor) extractImage(ctx context.Context, upload domain.Upload) (string, error) {
	if e.ocr == nil {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract image text", fmt.Errorf("ocr is not enabled"))
	}
	if upload.Size > maxImageBytes {
		return "", fmt.Errorf("image is %d bytes, limit is %d", upload.Size, maxImageBytes)
	}

	raw, err := io.ReadAll(upload.Reader())
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	text, err := e.ocr.Recognize(ctx, buf.Bytes(), e.cfg.OCRLanguage)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}
