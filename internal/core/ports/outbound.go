package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// TextExtractor pulls plain text out of a received file. It returns
// domain.ErrUnsupportedFormat when it has no extraction path for ext.
type TextExtractor interface {
	Extract(ctx context.Context, upload domain.Upload, ext string) (string, error)
}

// ContentTypeDetector sniffs the content type of a file from its bytes.
// Unrecognised content is reported as domain.UnknownContentType.
type ContentTypeDetector interface {
	Detect(ctx context.Context, r io.ReaderAt, size int64) (string, error)
}

// FallbackClassifier is the last-resort statistical classifier over text.
type FallbackClassifier interface {
	Predict(ctx context.Context, text string) (domain.Prediction, error)
}

// Embedder builds vectors for document text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ReviewSink durably stores documents that no stage could label.
type ReviewSink interface {
	Store(ctx context.Context, filename string, body io.Reader) (string, error)
}

// EscalationPublisher announces manual-review escalations.
type EscalationPublisher interface {
	PublishEscalation(ctx context.Context, event domain.ReviewEscalation) error
}

// EscalationSubscriber consumes manual-review escalations until ctx ends.
type EscalationSubscriber interface {
	SubscribeEscalations(ctx context.Context, handler func(context.Context, domain.ReviewEscalation) error) error
}

// OutcomeRepository persists classification audit records.
type OutcomeRepository interface {
	RecordOutcome(ctx context.Context, outcome domain.Outcome) error
}

// ReviewRepository persists the manual-review queue.
type ReviewRepository interface {
	EnqueueReview(ctx context.Context, item domain.ReviewItem) error
	GetReview(ctx context.Context, id string) (*domain.ReviewItem, error)
	ListPendingReviews(ctx context.Context, limit int) ([]domain.ReviewItem, error)
}

// ClassificationObserver receives pipeline telemetry.
type ClassificationObserver interface {
	ObserveResult(result domain.Result, elapsed time.Duration)
	ObserveExtractionFailure(ext string)
	ObserveEscalation()
}
