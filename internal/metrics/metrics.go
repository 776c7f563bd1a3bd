// Package metrics holds the Prometheus collectors for the scheduling pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meeting_scheduler"

// Recorder records pipeline outcomes. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	serviceDuration *prometheus.HistogramVec
	fetchFailures   prometheus.Counter
	notifyFailures  prometheus.Counter
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Scheduling requests by outcome code.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Deterministic fallbacks taken, by pipeline stage.",
		}, []string{"stage"}),
		serviceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_call_duration_seconds",
			Help:      "Latency of text understanding service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "result"}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendee_fetch_failures_total",
			Help:      "Calendar fetches that failed for a single attendee.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Scheduled meeting notifications that could not be published.",
		}),
	}
	reg.MustRegister(
		r.requests,
		r.fallbacks,
		r.serviceDuration,
		r.fetchFailures,
		r.notifyFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Request(outcome string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Fallback(stage string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(stage).Inc()
}

func (r *Recorder) ServiceCall(op string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.serviceDuration.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

func (r *Recorder) AttendeeFetchFailed() {
	if r == nil {
		return
	}
	r.fetchFailures.Inc()
}

func (r *Recorder) NotifyFailed() {
	if r == nil {
		return
	}
	r.notifyFailures.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
