package linear

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-triage/internal/core/domain"
	"github.com/kirillkom/document-triage/internal/core/ports"
	"github.com/kirillkom/document-triage/internal/infrastructure/chunking"
)

// ErrDisabled is returned when no trained model is configured.
var ErrDisabled = errors.New("fallback classifier disabled: no model configured")

// Classifier embeds document text and scores it with a linear model.
type Classifier struct {
	embedder ports.Embedder
	model    *Model
	splitter *chunking.Splitter
}

type Option func(*Classifier)

// WithSplitter embeds long documents window by window and averages the
// vectors instead of embedding one truncated string.
func WithSplitter(s *chunking.Splitter) Option {
	return func(c *Classifier) { c.splitter = s }
}

func NewClassifier(embedder ports.Embedder, model *Model, opts ...Option) *Classifier {
	c := &Classifier{embedder: embedder, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Predict(ctx context.Context, text string) (domain.Prediction, error) {
	if c.model == nil || c.embedder == nil {
		return domain.Prediction{}, ErrDisabled
	}

	vector, err := c.embed(ctx, text)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("embed document text: %w", err)
	}
	probs, err := c.model.Probabilities(vector)
	if err != nil {
		return domain.Prediction{}, err
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	prediction := domain.Prediction{
		Label:      c.model.Labels[best],
		Confidence: probs[best],
		Model:      c.model.EmbedModel,
	}
	slog.DebugContext(ctx, "fallback_prediction", "label", prediction.Label, "confidence", prediction.Confidence)
	return prediction, nil
}

func (c *Classifier) embed(ctx context.Context, text string) ([]float32, error) {
	if c.splitter == nil {
		return c.embedder.EmbedQuery(ctx, text)
	}
	chunks := c.splitter.Split(text)
	if len(chunks) <= 1 {
		return c.embedder.EmbedQuery(ctx, text)
	}
	vectors, err := c.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return meanPool(vectors)
}

func meanPool(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to pool")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("chunk embeddings differ in dimension: %d vs %d", len(v), dim)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(len(vectors)))
	}
	return out, nil
}
