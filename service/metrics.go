package service

import (
	"cardhub/lib"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ActivationMetrics counts orchestration attempts per issuer.
type ActivationMetrics struct {
	Attempts *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Batches  prometheus.Counter
}

func NewActivationMetrics() *ActivationMetrics {
	return &ActivationMetrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardhub_activation_attempts_total",
				Help: "Activation attempts by issuer and result.",
			},
			[]string{"issuer", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardhub_activation_duration_seconds",
				Help:    "Time spent waiting on issuer activation calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"issuer"},
		),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cardhub_batches_total",
			Help: "Batch activation runs started.",
		}),
	}
}

func (m *ActivationMetrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(m.Attempts, m.Duration, m.Batches)
}

func (m *ActivationMetrics) Observe(kind lib.IssuerKind, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !outcome.Succeeded {
		result = string(outcome.Failure)
	}
	m.Attempts.WithLabelValues(string(kind), result).Inc()
	m.Duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *ActivationMetrics) BatchStarted() {
	if m == nil {
		return
	}
	m.Batches.Inc()
}
