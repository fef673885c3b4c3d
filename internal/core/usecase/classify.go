package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-triage/internal/core/classifier"
	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/core/ports"
)

// DefaultMinConfidence is the bar every stage must clear, on a 0-1 scale.
const DefaultMinConfidence = 0.80

// Engine is the process-wide, read-only classification state. It is built once
// at startup and shared by every request.
type Engine struct {
	Rules         domain.RuleSet
	Filetypes     domain.FiletypeMap
	MinConfidence float64
}

type ClassifyFileUseCase struct {
	engine    Engine
	mime      *classifier.MimeValidator
	extractor ports.TextExtractor
	content   *classifier.ContentClassifier
	sink      ports.ReviewSink

	publisher ports.EscalationPublisher
	outcomes  ports.OutcomeRepository
	observer  ports.ClassificationObserver
	now       func() time.Time
}

type Option func(*ClassifyFileUseCase)

func WithEscalationPublisher(p ports.EscalationPublisher) Option {
	return func(uc *ClassifyFileUseCase) { uc.publisher = p }
}

func WithOutcomeRepository(r ports.OutcomeRepository) Option {
	return func(uc *ClassifyFileUseCase) { uc.outcomes = r }
}

func WithObserver(o ports.ClassificationObserver) Option {
	return func(uc *ClassifyFileUseCase) { uc.observer = o }
}

func NewClassifyFileUseCase(
	engine Engine,
	detector ports.ContentTypeDetector,
	extractor ports.TextExtractor,
	fallback ports.FallbackClassifier,
	sink ports.ReviewSink,
	opts ...Option,
) *ClassifyFileUseCase {
	if engine.MinConfidence <= 0 {
		engine.MinConfidence = DefaultMinConfidence
	}
	uc := &ClassifyFileUseCase{
		engine:    engine,
		mime:      classifier.NewMimeValidator(detector, engine.Filetypes),
		extractor: extractor,
		content:   classifier.NewContentClassifier(fallback),
		sink:      sink,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// runTrace collects what the stages learned about the upload for auditing.
type runTrace struct {
	ext         string
	contentType string
	reviewKey   string
}

// Classify drives one upload through the funnel: extension check, filename,
// content-type check, text extraction, content rules and fallback, and
// finally manual-review escalation. Each stage either ends the run or
// advances to the next one.
func (uc *ClassifyFileUseCase) Classify(ctx context.Context, upload domain.Upload) (domain.Result, error) {
	start := uc.now()
	trace := &runTrace{ext: strings.ToLower(filepath.Ext(upload.Filename))}

	result, err := uc.run(ctx, upload, trace)
	elapsed := uc.now().Sub(start)
	if err != nil {
		slog.ErrorContext(ctx, "classification_failed", "filename", upload.Filename, "error", err)
		return domain.Result{}, err
	}

	uc.finish(ctx, upload, trace, result, elapsed)
	return result, nil
}

func (uc *ClassifyFileUseCase) run(ctx context.Context, upload domain.Upload, trace *runTrace) (domain.Result, error) {
	if !uc.engine.Filetypes.Supports(trace.ext) {
		return unsupportedFile(trace.ext), nil
	}

	if match := classifier.ClassifyFilename(upload.Filename, uc.engine.Rules); match != nil {
		if match.Confidence >= uc.engine.MinConfidence {
			return domain.Succeeded(*match), nil
		}
		slog.DebugContext(ctx, "filename_match_below_threshold",
			"label", match.Label,
			"confidence", match.Confidence,
		)
	}

	contentType, ok, err := uc.mime.Validate(ctx, upload, trace.ext)
	if err != nil {
		return domain.Result{}, err
	}
	trace.contentType = contentType
	if !ok {
		return mimeMismatch(trace.ext, contentType), nil
	}

	text := uc.extractText(ctx, upload, trace.ext)

	result := uc.content.Classify(ctx, text, uc.engine.Rules, uc.engine.MinConfidence)
	if result.OK() {
		return result, nil
	}

	key, err := uc.escalate(ctx, upload, result)
	if err != nil {
		return domain.Result{}, err
	}
	trace.reviewKey = key
	return result, nil
}

func (uc *ClassifyFileUseCase) extractText(ctx context.Context, upload domain.Upload, ext string) string {
	text, err := uc.extractor.Extract(ctx, upload, ext)
	switch {
	case err == nil:
		// Rules see the extractor output untouched; only a blank result counts
		// as no evidence.
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return text
	case errors.Is(err, domain.ErrUnsupportedFormat):
		slog.DebugContext(ctx, "text_extraction_unsupported", "extension", ext)
	default:
		slog.WarnContext(ctx, "text_extraction_failed", "extension", ext, "filename", upload.Filename, "error", err)
		if uc.observer != nil {
			uc.observer.ObserveExtractionFailure(ext)
		}
	}
	return ""
}

func (uc *ClassifyFileUseCase) escalate(ctx context.Context, upload domain.Upload, result domain.Result) (string, error) {
	key, err := uc.sink.Store(ctx, upload.Filename, upload.Reader())
	if err != nil {
		return "", fmt.Errorf("store for manual review: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ObserveEscalation()
	}

	event := domain.ReviewEscalation{
		ID:            uuid.NewString(),
		Filename:      upload.Filename,
		StorageKey:    key,
		MinConfidence: uc.engine.MinConfidence,
		EscalatedAt:   uc.now().UTC(),
	}
	if label, ok := result.Failure.Details["final_predicted_label"].(string); ok {
		event.PredictedLabel = label
	}
	if confidence, ok := result.Failure.Details["predicted_confidence"].(float64); ok {
		event.PredictedConfidence = confidence
	}

	slog.InfoContext(ctx, "manual_review_escalated", "filename", upload.Filename, "storage_key", key)
	if uc.publisher != nil {
		if err := uc.publisher.PublishEscalation(ctx, event); err != nil {
			slog.WarnContext(ctx, "escalation_publish_failed", "review_id", event.ID, "error", err)
		}
	}
	return key, nil
}

func (uc *ClassifyFileUseCase) finish(ctx context.Context, upload domain.Upload, trace *runTrace, result domain.Result, elapsed time.Duration) {
	outcome := domain.Outcome{
		ID:          uuid.NewString(),
		Filename:    upload.Filename,
		Extension:   trace.ext,
		ContentType: trace.contentType,
		Success:     result.OK(),
		ReviewKey:   trace.reviewKey,
		Duration:    elapsed,
		CreatedAt:   uc.now().UTC(),
	}
	if result.OK() {
		outcome.Label = result.Success.Label
		outcome.Step = result.Success.Step
		outcome.Confidence = result.Success.Confidence
		slog.InfoContext(ctx, "classification_completed",
			"filename", upload.Filename,
			"label", outcome.Label,
			"step", int(outcome.Step),
			"confidence", outcome.Confidence,
		)
	} else {
		outcome.Code = result.Failure.Code
		slog.InfoContext(ctx, "classification_rejected", "filename", upload.Filename, "code", outcome.Code)
	}

	if uc.observer != nil {
		uc.observer.ObserveResult(result, elapsed)
	}
	if uc.outcomes != nil {
		if err := uc.outcomes.RecordOutcome(ctx, outcome); err != nil {
			slog.WarnContext(ctx, "outcome_record_failed", "outcome_id", outcome.ID, "error", err)
		}
	}
}

func unsupportedFile(ext string) domain.Result {
	return domain.Failed(domain.Failure{
		Message: fmt.Sprintf("File extension '%s' not supported.", ext),
		Action:  "Ensure file is of supported type.",
		Code:    domain.CodeUnsupportedFile,
		Details: map[string]any{"provided_extension": ext},
	})
}

func mimeMismatch(ext, contentType string) domain.Result {
	return domain.Failed(domain.Failure{
		Message: "File extension and detected MIME type do not match.",
		Action:  "Ensure file is not corrupted and has the correct extension.",
		Code:    domain.CodeMimeMismatch,
		Details: map[string]any{
			"declared_extension": ext,
			"detected_mime_type": contentType,
		},
	})
}
