// Package metrics exposes Prometheus instrumentation for the catch pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Identify outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeFetchError   = "fetch_error"
	OutcomeImageError   = "image_error"
	OutcomeModelError   = "model_error"
	OutcomeParseError   = "parse_error"
	OutcomePersistError = "persist_error"
)

// Recorder holds the collectors on a private registry.
type Recorder struct {
	registry         *prometheus.Registry
	identifyTotal    *prometheus.CounterVec
	identifyDuration prometheus.Histogram
	deletesTotal     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		identifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchlog_identify_requests_total",
			Help: "Identification requests by outcome.",
		}, []string{"outcome"}),
		identifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catchlog_identify_duration_seconds",
			Help:    "Wall time of the identification pipeline.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		deletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catchlog_catch_deletes_total",
			Help: "Catch deletions by what happened to the backing asset.",
		}, []string{"asset"}),
	}
	r.registry.MustRegister(r.identifyTotal, r.identifyDuration, r.deletesTotal)
	return r
}

// ObserveIdentify records one pipeline run. A nil Recorder is a no-op.
func (r *Recorder) ObserveIdentify(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.identifyTotal.WithLabelValues(outcome).Inc()
	r.identifyDuration.Observe(elapsed.Seconds())
}

// ObserveDelete records one catch deletion; asset is "deleted", "missing" or
// "failed".
func (r *Recorder) ObserveDelete(asset string) {
	if r == nil {
		return
	}
	r.deletesTotal.WithLabelValues(asset).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
