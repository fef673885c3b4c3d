package plaintext

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// DefaultLimit caps how much of a text file is read for classification.
const DefaultLimit = 4 << 20

// Extract reads UTF-8 text from r. Binary content is reported as
// domain.ErrUnsupportedFormat.
func Extract(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return "", fmt.Errorf("read text document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract plain text", fmt.Errorf("content is not valid UTF-8"))
	}
	return strings.TrimSpace(string(raw)), nil
}
