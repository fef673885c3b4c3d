package ports

import (
	"context"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// FileClassifier is the inbound contract for the classification funnel.
// Classification outcomes, including rejections, are returned as a Result;
// the error is reserved for infrastructure failures.
type FileClassifier interface {
	Classify(ctx context.Context, upload domain.Upload) (domain.Result, error)
}

// ReviewRecorder is the inbound contract of the review worker.
type ReviewRecorder interface {
	RecordEscalation(ctx context.Context, event domain.ReviewEscalation) error
}
