package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

type KeyStrategy string

const (
	// KeyFilename stores under the uploaded name; a later upload with the
	// same name replaces the earlier one.
	KeyFilename KeyStrategy = "filename"
	// KeyUnique prefixes a random UUID so nothing is overwritten.
	KeyUnique KeyStrategy = "unique"
)

func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyFilename:
		return KeyFilename, nil
	case KeyUnique:
		return KeyUnique, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidConfig, "review key strategy", fmt.Errorf("unknown strategy %q", s))
	}
}

// Storage is the manual-review sink: a flat directory of documents that no
// classification stage could label.
type Storage struct {
	basePath string
	strategy KeyStrategy
}

func New(basePath string, strategy KeyStrategy) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/manual_review"
	}
	if strategy == "" {
		strategy = KeyFilename
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create review dir: %w", err)
	}
	return &Storage{basePath: basePath, strategy: strategy}, nil
}

// Store writes body to a temporary file in the review directory and renames
// it into place, so readers never observe a partially written document.
func (s *Storage) Store(ctx context.Context, filename string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := s.key(filename)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.basePath, ".incoming-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write review file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("sync review file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close review file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.basePath, key)); err != nil {
		return "", fmt.Errorf("commit review file: %w", err)
	}
	committed = true
	return key, nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	clean, err := sanitize(key)
	if err != nil || clean != key {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open review file", fmt.Errorf("invalid key %q", key))
	}
	f, err := os.Open(filepath.Join(s.basePath, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrReviewNotFound, "open review file", err)
	}
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) key(filename string) (string, error) {
	name, err := sanitize(filename)
	if err != nil {
		return "", err
	}
	if s.strategy == KeyUnique {
		return uuid.NewString() + "_" + name, nil
	}
	return name, nil
}

// sanitize reduces an uploaded name to a single path element inside the
// review directory.
func sanitize(filename string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, `\`, "/")))
	if name == "/" || name == "." || name == ".." || strings.HasPrefix(name, ".incoming-") {
		return "", domain.WrapError(domain.ErrInvalidInput, "review key", fmt.Errorf("unusable filename %q", filename))
	}
	return name, nil
}
