package classifier

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+expr))
	}
	return out
}

func invoicePatterns() domain.ContentPatterns {
	return domain.ContentPatterns{
		Required:   patterns("invoice number"),
		Supporting: patterns("total amount", "payment due"),
	}
}

func TestScoreContent(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		patterns   domain.ContentPatterns
		confidence float64
		required   []string
		supporting []string
		negative   []string
	}{
		{
			name:       "all required and supporting present",
			text:       "Invoice Number: 12345\nTotal Amount: $1000\nPayment Due: tomorrow",
			patterns:   invoicePatterns(),
			confidence: 0.95,
			required:   []string{"Invoice Number"},
			supporting: []string{"Total Amount", "Payment Due"},
			negative:   []string{},
		},
		{
			name:       "half of supporting present",
			text:       "Invoice Number: 12345\nTotal Amount: $1000",
			patterns:   invoicePatterns(),
			confidence: 0.775,
			required:   []string{"Invoice Number"},
			supporting: []string{"Total Amount"},
			negative:   []string{},
		},
		{
			name: "required missing",
			text: "Total Amount: $1000",
			patterns: domain.ContentPatterns{
				Required:   patterns("invoice number"),
				Supporting: patterns("total amount"),
			},
			confidence: 0,
			required:   []string{},
			supporting: []string{},
			negative:   []string{},
		},
		{
			name: "negative hit disqualifies",
			text: "Invoice Number: 12345\nCONFIDENTIAL - DO NOT SHARE",
			patterns: domain.ContentPatterns{
				Required: patterns("invoice number"),
				Negative: patterns("confidential"),
			},
			confidence: 0,
			required:   []string{},
			supporting: []string{},
			negative:   []string{"CONFIDENTIAL"},
		},
		{
			name: "no supporting patterns configured gives full credit",
			text: "Invoice Number: 12345",
			patterns: domain.ContentPatterns{
				Required: patterns("invoice number"),
			},
			confidence: 0.95,
			required:   []string{"Invoice Number"},
			supporting: []string{},
			negative:   []string{},
		},
		{
			name:       "empty text",
			text:       "",
			patterns:   invoicePatterns(),
			confidence: 0,
			required:   []string{},
			supporting: []string{},
			negative:   []string{},
		},
		{
			name: "repeated supporting occurrences are capped",
			text: "invoice number 1 total amount total amount total amount",
			patterns: domain.ContentPatterns{
				Required:   patterns("invoice number"),
				Supporting: patterns("total amount", "payment due"),
			},
			confidence: 0.95,
			required:   []string{"invoice number"},
			supporting: []string{"total amount", "total amount", "total amount"},
			negative:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confidence, matches := ScoreContent(tt.patterns, tt.text)
			require.InDelta(t, tt.confidence, confidence, 1e-9)
			require.Equal(t, tt.required, matches.Required)
			require.Equal(t, tt.supporting, matches.Supporting)
			require.Equal(t, tt.negative, matches.Negative)
		})
	}
}

func TestScoreContentIsMonotonicInSupportingHits(t *testing.T) {
	p := domain.ContentPatterns{
		Required:   patterns("statement"),
		Supporting: patterns("opening balance", "closing balance", "sort code", "debit"),
	}
	texts := []string{
		"statement",
		"statement opening balance",
		"statement opening balance closing balance",
		"statement opening balance closing balance sort code",
		"statement opening balance closing balance sort code debit",
		"statement opening balance closing balance sort code debit debit debit",
	}

	prev := 0.0
	for _, text := range texts {
		confidence, _ := ScoreContent(p, text)
		require.GreaterOrEqual(t, confidence, prev)
		require.LessOrEqual(t, confidence, BaseScore+AdditionalRange)
		require.GreaterOrEqual(t, confidence, BaseScore)
		prev = confidence
	}
}

type fallbackFake struct {
	prediction domain.Prediction
	err        error
	calls      int
}

func (f *fallbackFake) Predict(context.Context, string) (domain.Prediction, error) {
	f.calls++
	return f.prediction, f.err
}

func contentRules() domain.RuleSet {
	return domain.RuleSet{
		{Label: "bank_statement", Content: domain.ContentPatterns{
			Required:   patterns("account number"),
			Supporting: patterns("opening balance", "closing balance"),
		}},
		{Label: "invoice", Content: invoicePatterns()},
	}
}

func TestContentClassifierRuleMatch(t *testing.T) {
	fallback := &fallbackFake{}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "Invoice Number: 1\nTotal Amount: 3\nPayment Due: now", contentRules(), 0.8)
	require.True(t, result.OK())
	require.Equal(t, "invoice", result.Success.Label)
	require.Equal(t, domain.StepContentRegex, result.Success.Step)
	require.Equal(t, domain.BasedOnContent, result.Success.BasedOn)
	require.Equal(t, domain.MatchTypeRegex, result.Success.MatchType)
	require.Contains(t, result.Success.AdditionalInfo, "text_matches")
	require.Zero(t, fallback.calls)
}

func TestContentClassifierFallsBackToEmbedding(t *testing.T) {
	fallback := &fallbackFake{prediction: domain.Prediction{Label: "driving_license", Confidence: 0.91}}
	cc := NewContentClassifier(fallback)

	// 0.775 from the invoice rule stays below the bar.
	result := cc.Classify(context.Background(), "Invoice Number: 1\nTotal Amount: 3", contentRules(), 0.8)
	require.True(t, result.OK())
	require.Equal(t, "driving_license", result.Success.Label)
	require.Equal(t, domain.StepEmbedding, result.Success.Step)
	require.Equal(t, domain.MatchTypeEmbedding, result.Success.MatchType)
	require.Equal(t, 1, fallback.calls)
}

func TestContentClassifierLowConfidenceIsUnclassifiable(t *testing.T) {
	fallback := &fallbackFake{prediction: domain.Prediction{Label: "invoice", Confidence: 0.42}}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "lorem ipsum", contentRules(), 0.8)
	require.False(t, result.OK())
	require.Equal(t, domain.CodeUnclassifiable, result.Failure.Code)
	require.Equal(t, "invoice", result.Failure.Details["final_predicted_label"])
	require.Equal(t, 0.42, result.Failure.Details["predicted_confidence"])
	require.Equal(t, 0.8, result.Failure.Details["min_confidence_required"])
}

func TestContentClassifierSkipsFallbackWithoutText(t *testing.T) {
	fallback := &fallbackFake{prediction: domain.Prediction{Label: "invoice", Confidence: 0.99}}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "", contentRules(), 0.8)
	require.False(t, result.OK())
	require.Equal(t, domain.CodeUnclassifiable, result.Failure.Code)
	require.Contains(t, result.Failure.Details, "fallback_skipped")
	require.Zero(t, fallback.calls)
}

func TestContentClassifierFallbackErrorIsUnclassifiable(t *testing.T) {
	fallback := &fallbackFake{err: errors.New("ollama down")}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "some text", contentRules(), 0.8)
	require.False(t, result.OK())
	require.Equal(t, domain.CodeUnclassifiable, result.Failure.Code)
	require.Equal(t, "ollama down", result.Failure.Details["fallback_error"])
}

func TestContentClassifierFallbackJustBelowBarIsUnclassifiable(t *testing.T) {
	fallback := &fallbackFake{prediction: domain.Prediction{Label: "invoice", Confidence: 0.796}}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "some text", contentRules(), 0.80)
	require.False(t, result.OK())
	require.Equal(t, domain.CodeUnclassifiable, result.Failure.Code)
	require.Equal(t, "invoice", result.Failure.Details["final_predicted_label"])
	require.InDelta(t, 0.796, result.Failure.Details["predicted_confidence"], 1e-9)
}

func TestContentClassifierFallbackAtBarSucceeds(t *testing.T) {
	fallback := &fallbackFake{prediction: domain.Prediction{Label: "invoice", Confidence: 0.80}}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "some text", contentRules(), 0.80)
	require.True(t, result.OK())
	require.Equal(t, domain.StepEmbedding, result.Success.Step)
	require.Equal(t, 0.8, result.Success.Confidence)
}

func TestContentClassifierRoundsReportedFallbackConfidence(t *testing.T) {
	fallback := &fallbackFake{prediction: domain.Prediction{Label: "invoice", Confidence: 0.98201}}
	cc := NewContentClassifier(fallback)

	result := cc.Classify(context.Background(), "some text", contentRules(), 0.80)
	require.True(t, result.OK())
	require.Equal(t, 0.98, result.Success.Confidence)
}
