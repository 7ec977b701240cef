// Package metrics exposes pipeline counters to Prometheus. A nil *Pipeline is
// valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proposallens"

// Key classes used as the "class" label on cache counters.
const (
	ClassProposals = "proposals"
	ClassSummary   = "summary"
)

// Pipeline groups the enrichment pipeline's collectors.
type Pipeline struct {
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheErrors        *prometheus.CounterVec
	SummaryCalls       prometheus.Counter
	SummaryFailures    prometheus.Counter
	FetchFailures      prometheus.Counter
	ActivationDuration prometheus.Histogram
}

// NewPipeline creates and registers the collectors on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	m := &Pipeline{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Durable cache hits by key class.",
		}, []string{"class"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Durable cache misses by key class.",
		}, []string{"class"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Durable cache operations that failed, by operation.",
		}, []string{"op"}),
		SummaryCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_calls_total",
			Help:      "Calls made to the completion API.",
		}),
		SummaryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_failures_total",
			Help:      "Completion API calls that failed.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Proposal list fetches that failed.",
		}),
		ActivationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activation_duration_seconds",
			Help:      "Wall time of a full pipeline activation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheHits,
			m.CacheMisses,
			m.CacheErrors,
			m.SummaryCalls,
			m.SummaryFailures,
			m.FetchFailures,
			m.ActivationDuration,
		)
	}
	return m
}

func (m *Pipeline) CacheHit(class string) {
	if m != nil {
		m.CacheHits.WithLabelValues(class).Inc()
	}
}

func (m *Pipeline) CacheMiss(class string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(class).Inc()
	}
}

func (m *Pipeline) CacheError(op string) {
	if m != nil {
		m.CacheErrors.WithLabelValues(op).Inc()
	}
}

func (m *Pipeline) SummaryCall() {
	if m != nil {
		m.SummaryCalls.Inc()
	}
}

func (m *Pipeline) SummaryFailure() {
	if m != nil {
		m.SummaryFailures.Inc()
	}
}

func (m *Pipeline) FetchFailure() {
	if m != nil {
		m.FetchFailures.Inc()
	}
}

func (m *Pipeline) ObserveActivation(d time.Duration) {
	if m != nil {
		m.ActivationDuration.Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
