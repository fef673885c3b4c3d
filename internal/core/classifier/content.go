package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/core/ports"
)

// Content scoring constants. BaseScore is granted once every required pattern
// is found; supporting evidence adds up to AdditionalRange on top.
const (
	BaseScore       = 0.60
	AdditionalRange = 0.35
)

func init() {
	if BaseScore+AdditionalRange > 1.0 {
		panic("classifier: BaseScore + AdditionalRange must not exceed 1.0")
	}
}

// ScoreContent scores text against one rule's content patterns. A negative
// hit or a missing required pattern scores zero. Otherwise the score grows
// with the fraction of supporting patterns seen, capped at full credit.
func ScoreContent(patterns domain.ContentPatterns, text string) (float64, domain.TextMatches) {
	matches := domain.NewTextMatches()
	if text == "" {
		return 0, matches
	}

	for _, pattern := range patterns.Negative {
		if loc := pattern.FindStringIndex(text); loc != nil {
			matches.Negative = append(matches.Negative, text[loc[0]:loc[1]])
			return 0, matches
		}
	}

	for _, pattern := range patterns.Required {
		loc := pattern.FindStringIndex(text)
		if loc == nil {
			return 0, matches
		}
		matches.Required = append(matches.Required, text[loc[0]:loc[1]])
	}

	for _, pattern := range patterns.Supporting {
		matches.Supporting = append(matches.Supporting, pattern.FindAllString(text, -1)...)
	}

	fraction := 1.0
	if len(patterns.Supporting) > 0 {
		fraction = min(1.0, float64(len(matches.Supporting))/float64(len(patterns.Supporting)))
	}
	return BaseScore + fraction*AdditionalRange, matches
}

// ContentClassifier labels extracted text with the rule set first and the
// statistical fallback second.
type ContentClassifier struct {
	fallback ports.FallbackClassifier
}

func NewContentClassifier(fallback ports.FallbackClassifier) *ContentClassifier {
	return &ContentClassifier{fallback: fallback}
}

// Classify never returns an error for a low-confidence outcome; that is an
// unclassifiable_file failure result carrying the best guess for audit.
func (c *ContentClassifier) Classify(ctx context.Context, text string, rules domain.RuleSet, minConfidence float64) domain.Result {
	for _, rule := range rules {
		confidence, matches := ScoreContent(rule.Content, text)
		if confidence >= minConfidence {
			return domain.Succeeded(domain.Success{
				Label:          rule.Label,
				Step:           domain.StepContentRegex,
				BasedOn:        domain.BasedOnContent,
				MatchType:      domain.MatchTypeRegex,
				AdditionalInfo: map[string]any{"text_matches": matches},
				Confidence:     confidence,
			})
		}
	}

	details := map[string]any{
		"min_confidence_required": minConfidence,
		"fallback_model":          domain.MatchTypeEmbedding,
	}

	if text == "" {
		details["final_predicted_label"] = nil
		details["predicted_confidence"] = 0.0
		details["fallback_skipped"] = "no extractable text"
		return unclassifiable(details)
	}

	prediction, err := c.predict(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "fallback_classifier_failed", "error", err)
		details["final_predicted_label"] = nil
		details["predicted_confidence"] = 0.0
		details["fallback_error"] = err.Error()
		return unclassifiable(details)
	}

	// The bar applies to the raw probability; rounding is for the response only.
	if prediction.Confidence >= minConfidence {
		return domain.Succeeded(domain.Success{
			Label:          prediction.Label,
			Step:           domain.StepEmbedding,
			BasedOn:        domain.BasedOnContent,
			MatchType:      domain.MatchTypeEmbedding,
			AdditionalInfo: map[string]any{},
			Confidence:     roundTo(prediction.Confidence, 2),
		})
	}

	details["final_predicted_label"] = prediction.Label
	details["predicted_confidence"] = prediction.Confidence
	if prediction.Model != "" {
		details["fallback_model"] = fmt.Sprintf("%s (%s)", domain.MatchTypeEmbedding, prediction.Model)
	}
	return unclassifiable(details)
}

func (c *ContentClassifier) predict(ctx context.Context, text string) (domain.Prediction, error) {
	if c.fallback == nil {
		return domain.Prediction{}, errors.New("no fallback classifier configured")
	}
	return c.fallback.Predict(ctx, text)
}

func unclassifiable(details map[string]any) domain.Result {
	return domain.Failed(domain.Failure{
		Message: "Could not confidently classify document.",
		Action:  "Document saved for manual review.",
		Code:    domain.CodeUnclassifiable,
		Details: details,
	})
}
