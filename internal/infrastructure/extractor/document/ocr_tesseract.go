//go:build ocr

package document

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs OCR through libtesseract. A client is created per call
// because gosseract clients are not safe for concurrent use.
type Tesseract struct{}

func NewOCR() (OCR, error) {
	return Tesseract{}, nil
}

func (Tesseract) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return client.Text()
}
