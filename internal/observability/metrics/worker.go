package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	consumedTotal   *prometheus.CounterVec
	handleDuration  *prometheus.HistogramVec
	handleInFlight  prometheus.Gauge
	escalationDelay prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	consumedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "escalations_consumed_total",
			Help:      "Escalation events consumed by status.",
		},
		[]string{"service", "status"},
	)
	handleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "escalation_handle_duration_seconds",
			Help:      "Time to enqueue one escalation by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	handleInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "escalations_in_flight",
			Help:      "Number of escalations being enqueued.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	escalationDelay := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "escalation_lag_seconds",
			Help:      "Delay between escalation and enqueue.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(consumedTotal, handleDuration, handleInFlight, escalationDelay)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		consumedTotal:   consumedTotal,
		handleDuration:  handleDuration,
		handleInFlight:  handleInFlight,
		escalationDelay: escalationDelay,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEscalation() {
	m.handleInFlight.Inc()
}

func (m *WorkerMetrics) FinishEscalation(duration time.Duration, err error) {
	m.handleInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.consumedTotal.WithLabelValues(m.service, status).Inc()
	m.handleDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.escalationDelay.Observe(lag.Seconds())
}
