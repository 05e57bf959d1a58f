// Package metrics exposes Prometheus collectors for resolution outcomes.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the resolution engine collectors
type Metrics struct {
	translations  *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	duration      prometheus.Histogram
	batchSize     prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosetta_translations_total",
			Help: "Translations by winning provenance.",
		}, []string{"provenance"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rosetta_confirmations_total",
			Help: "Confirmations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rosetta_translate_duration_seconds",
			Help:    "Time spent resolving a single text.",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rosetta_batch_size",
			Help:    "Number of texts per batch translation.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.translations, m.confirmations, m.duration, m.batchSize} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// ObserveTranslate records one translation
func (m *Metrics) ObserveTranslate(provenance string, took time.Duration) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(provenance).Inc()
	m.duration.Observe(took.Seconds())
}

// ObserveConfirm records one confirmation outcome
func (m *Metrics) ObserveConfirm(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

// ObserveBatch records the size of a batch translation
func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}
