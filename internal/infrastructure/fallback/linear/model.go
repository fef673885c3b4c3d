package linear

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

type Scheme string

const (
	// SchemeOvR scores every label with its own sigmoid and normalises the
	// results to sum to one.
	SchemeOvR Scheme = "ovr"
	// SchemeMultinomial applies a softmax over the per-label logits.
	SchemeMultinomial Scheme = "multinomial"
)

// Model is a logistic-regression head trained offline on document embeddings.
// Weights holds one row per label, each as long as the embedding vector.
type Model struct {
	EmbedModel string      `json:"embed_model"`
	Labels     []string    `json:"labels"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Scheme     Scheme      `json:"scheme"`
}

func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback model: %w", err)
	}
	return ParseModel(raw)
}

func ParseModel(raw []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "parse fallback model", err)
	}
	if err := m.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "validate fallback model", err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if m.Scheme == "" {
		m.Scheme = SchemeOvR
	}
	if m.Scheme != SchemeOvR && m.Scheme != SchemeMultinomial {
		return fmt.Errorf("unknown scheme %q", m.Scheme)
	}
	if len(m.Labels) < 2 {
		return errors.New("at least two labels are required")
	}
	if len(m.Weights) != len(m.Labels) || len(m.Bias) != len(m.Labels) {
		return fmt.Errorf("expected %d weight rows and biases, got %d and %d", len(m.Labels), len(m.Weights), len(m.Bias))
	}
	dim := len(m.Weights[0])
	if dim == 0 {
		return errors.New("weight rows must not be empty")
	}
	for i, row := range m.Weights {
		if len(row) != dim {
			return fmt.Errorf("weight row %d has %d values, want %d", i, len(row), dim)
		}
	}
	return nil
}

func (m *Model) Dim() int {
	return len(m.Weights[0])
}

// Probabilities returns one probability per label, in label order.
func (m *Model) Probabilities(vector []float32) ([]float64, error) {
	if len(vector) != m.Dim() {
		return nil, fmt.Errorf("embedding has %d dimensions, model expects %d", len(vector), m.Dim())
	}

	logits := make([]float64, len(m.Labels))
	for i, row := range m.Weights {
		z := m.Bias[i]
		for j, w := range row {
			z += w * float64(vector[j])
		}
		logits[i] = z
	}

	if m.Scheme == SchemeMultinomial {
		return softmax(logits), nil
	}
	return normalizedSigmoid(logits), nil
}

func softmax(logits []float64) []float64 {
	peak := math.Inf(-1)
	for _, z := range logits {
		peak = max(peak, z)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, z := range logits {
		out[i] = math.Exp(z - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func normalizedSigmoid(logits []float64) []float64 {
	out := make([]float64, len(logits))
	var sum float64
	for i, z := range logits {
		out[i] = 1 / (1 + math.Exp(-z))
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
