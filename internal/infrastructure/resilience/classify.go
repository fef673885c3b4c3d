package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// PermanentFailures never retries and counts every error against the breaker.
func PermanentFailures(error) ErrorClassification {
	return ErrorClassification{Retryable: false, RecordFailure: true}
}

// TransientNetwork retries connection-level failures and errors already
// marked domain.ErrTemporary. Caller cancellation is neither retried nor
// held against the dependency.
func TransientNetwork(err error) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{}
	case IsCircuitOpen(err):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case domain.IsKind(err, domain.ErrTemporary):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return PermanentFailures(err)
}

// MarkTemporary tags err with domain.ErrTemporary when classifier would have
// retried it, so callers upstream can tell outages from bad input.
func MarkTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if IsCircuitOpen(err) || classifier(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
