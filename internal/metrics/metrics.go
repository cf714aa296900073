// Package metrics exports pipeline counters and timings to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapetech/assetfetch/internal/pipeline"
	"github.com/snapetech/assetfetch/internal/platform"
)

const namespace = "assetfetch"

// Metrics implements pipeline.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	stepsTotal      *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	resultsTotal    *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	resolveDuration prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		stepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_total",
			Help:      "Pipeline steps by outcome.",
		}, []string{"step", "outcome"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of pipeline steps in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		resultsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Finished pipeline runs by furthest stage and outcome.",
		}, []string{"stage", "outcome"}),
		bytesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to the output directory.",
		}),
		resolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Duration of whole pipeline runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

func (m *Metrics) ObserveStep(step string, outcome platform.Outcome, elapsed time.Duration) {
	m.stepsTotal.WithLabelValues(step, string(outcome)).Inc()
	m.stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveResult(r pipeline.Result, elapsed time.Duration) {
	m.resultsTotal.WithLabelValues(string(r.Stage), string(r.Outcome())).Inc()
	if r.OK() {
		m.bytesTotal.Add(float64(r.Bytes))
	}
	m.resolveDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
