// Package sniff detects a file's content type from its leading bytes.
package sniff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/h2non/filetype"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// headerSize covers the OOXML matchers, which look past the first zip entry.
const headerSize = 8192

const (
	BackendFiletype = "filetype"
	BackendMimetype = "mimetype"
)

// New returns the detector for backend. An empty backend selects filetype.
func New(backend string) (*Detector, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFiletype:
		return &Detector{name: BackendFiletype, match: matchFiletype}, nil
	case BackendMimetype:
		return &Detector{name: BackendMimetype, match: matchMimetype}, nil
	default:
		return nil, fmt.Errorf("unknown mime detector %q", backend)
	}
}

type Detector struct {
	name  string
	match func(header []byte) string
}

func (d *Detector) Name() string {
	return d.name
}

func (d *Detector) Detect(_ context.Context, r io.ReaderAt, size int64) (string, error) {
	header := make([]byte, min(size, headerSize))
	n, err := r.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read file header: %w", err)
	}
	if n == 0 {
		return domain.UnknownContentType, nil
	}
	return normalize(d.match(header[:n])), nil
}

func matchFiletype(header []byte) string {
	kind, err := filetype.Match(header)
	if err != nil || kind == filetype.Unknown {
		return domain.UnknownContentType
	}
	return kind.MIME.Value
}

func matchMimetype(header []byte) string {
	return mimetype.Detect(header).String()
}

// normalize drops parameters such as charset so results compare against the
// bare types listed in the filetype map.
func normalize(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" {
		return domain.UnknownContentType
	}
	return strings.ToLower(mediaType)
}
