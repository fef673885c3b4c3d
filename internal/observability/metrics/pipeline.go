package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/document-triage/internal/core/domain"
)

// PipelineMetrics implements ports.ClassificationObserver.
type PipelineMetrics struct {
	service string

	outcomesTotal      *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	confidence         *prometheus.HistogramVec
	escalationsTotal   *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

func newPipelineMetrics(registry prometheus.Registerer, service string) *PipelineMetrics {
	outcomesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "outcomes_total",
			Help:      "Classification results by deciding step, or by failure code.",
		},
		[]string{"service", "result", "step", "code"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "duration_seconds",
			Help:      "End-to-end pipeline duration per upload.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "result"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "confidence",
			Help:      "Confidence of successful classifications by step.",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"service", "step"},
	)
	escalationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "escalations_total",
			Help:      "Documents handed to manual review.",
		},
		[]string{"service"},
	)
	extractionFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "extraction_failures_total",
			Help:      "Text extraction errors by file extension.",
		},
		[]string{"service", "extension"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(outcomesTotal, duration, confidence, escalationsTotal, extractionFailures, breakerState)

	return &PipelineMetrics{
		service:            service,
		outcomesTotal:      outcomesTotal,
		duration:           duration,
		confidence:         confidence,
		escalationsTotal:   escalationsTotal,
		extractionFailures: extractionFailures,
		breakerState:       breakerState,
	}
}

func (m *PipelineMetrics) ObserveResult(result domain.Result, elapsed time.Duration) {
	if result.OK() {
		step := strconv.Itoa(int(result.Success.Step))
		m.outcomesTotal.WithLabelValues(m.service, "success", step, "").Inc()
		m.confidence.WithLabelValues(m.service, step).Observe(result.Success.Confidence)
		m.duration.WithLabelValues(m.service, "success").Observe(elapsed.Seconds())
		return
	}
	code := "unknown"
	if result.Failure != nil {
		code = result.Failure.Code
	}
	m.outcomesTotal.WithLabelValues(m.service, "failure", "", code).Inc()
	m.duration.WithLabelValues(m.service, "failure").Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ObserveExtractionFailure(ext string) {
	if ext == "" {
		ext = "none"
	}
	m.extractionFailures.WithLabelValues(m.service, ext).Inc()
}

func (m *PipelineMetrics) ObserveEscalation() {
	m.escalationsTotal.WithLabelValues(m.service).Inc()
}

// ObserveBreaker matches resilience.StateListener.
func (m *PipelineMetrics) ObserveBreaker(operation string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(to))
}
