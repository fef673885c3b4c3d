package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrReviewNotFound    = errors.New("review item not found")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ConfigError reports a rule or filetype definition that cannot be loaded.
// It always matches ErrInvalidConfig.
type ConfigError struct {
	Label string
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Label != "" && e.Field != "":
		return fmt.Sprintf("rule %q field %q: %s", e.Label, e.Field, e.Msg)
	case e.Label != "":
		return fmt.Sprintf("rule %q: %s", e.Label, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	default:
		return e.Msg
	}
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }
