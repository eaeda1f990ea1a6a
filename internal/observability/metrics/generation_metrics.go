package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics tracks the credit-metered generation pipeline.
type GenerationMetrics struct {
	outcomes        *prometheus.CounterVec
	creditsSpent    prometheus.Counter
	providerLatency *prometheus.HistogramVec
	debitPending    prometheus.Counter
}

// NewGenerationMetrics registers generation instruments on the default registry.
func NewGenerationMetrics() *GenerationMetrics {
	m := &GenerationMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inkwell_generation_total",
			Help: "Generation attempts by outcome.",
		}, []string{"outcome"}),
		creditsSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_credits_spent_total",
			Help: "Total credits debited for successful generations.",
		}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inkwell_provider_request_duration_seconds",
			Help:    "Latency of provider completion calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider", "ok"}),
		debitPending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inkwell_debit_pending_total",
			Help: "Artifacts persisted whose debit needs reconciliation.",
		}),
	}

	m.outcomes = registerCounterVec(m.outcomes)
	m.creditsSpent = registerCounter(m.creditsSpent)
	m.providerLatency = registerHistogramVec(m.providerLatency)
	m.debitPending = registerCounter(m.debitPending)

	return m
}

func registerCounter(c prometheus.Counter) prometheus.Counter {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func registerHistogramVec(h *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return h
}

// RecordOutcome counts one generation attempt.
func (m *GenerationMetrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

// RecordCreditsSpent adds successfully debited credits.
func (m *GenerationMetrics) RecordCreditsSpent(cost int64) {
	if m == nil || cost <= 0 {
		return
	}
	m.creditsSpent.Add(float64(cost))
}

// RecordProviderCall observes one provider round trip.
func (m *GenerationMetrics) RecordProviderCall(provider string, elapsed time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(strings.TrimSpace(provider), strconv.FormatBool(ok)).Observe(elapsed.Seconds())
}

// RecordDebitPending counts one unreconciled debit.
func (m *GenerationMetrics) RecordDebitPending() {
	if m == nil {
		return
	}
	m.debitPending.Inc()
}
