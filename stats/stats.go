// Package stats exposes prometheus/client_golang counters, a gauge, and
// a histogram for the few engine-wide signals worth tracking across a
// run: somas registered, impulses delivered by variant, organelles
// currently active, and probe gather latency (SPEC_FULL.md §2 "domain
// stack"). Grounded on the teacher's telemetry conventions, generalized
// from DataDog-datadog-agent's comp/core/telemetry/telemetryimpl
// (prom_counter_test.go: a private *prometheus.Registry wrapping
// individually named collectors, gathered directly rather than served).
//
// A Registry is never wired to an HTTP listener by this module — an
// embedding service that wants /metrics does that itself with
// promhttp.HandlerFor(reg.Gather, ...), which is outside the composition
// engine's own scope.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry collects one run's (or one process's, if shared across runs)
// engine metrics.
type Registry struct {
	reg *prometheus.Registry

	SomasRegistered   prometheus.Counter
	ImpulsesDelivered *prometheus.CounterVec
	OrganellesActive  prometheus.Gauge
	ProbeLatency      prometheus.Histogram
}

// New builds a Registry with every collector under namespace (e.g.
// "organelle"). Safe to call more than once per process — each Registry
// wraps its own private *prometheus.Registry, so multiple runs (or
// tests) never collide on collector registration.
func New(namespace string) *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.SomasRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "somas_registered_total",
		Help:      "Somas registered across every organelle sharing this registry.",
	})
	r.ImpulsesDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "impulses_delivered_total",
		Help:      "Impulses delivered to a soma's Update, labeled by variant.",
	}, []string{"variant"})
	r.OrganellesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "organelles_active",
		Help:      "Organelles currently between Start and Stop/Error.",
	})
	r.ProbeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "probe_latency_seconds",
		Help:      "Time to fan a Probe out across a graph and assemble the reply.",
		Buckets:   prometheus.DefBuckets,
	})

	r.reg.MustRegister(r.SomasRegistered, r.ImpulsesDelivered, r.OrganellesActive, r.ProbeLatency)
	return r
}

// Gather returns the current snapshot in the client_golang exposition
// model, for a caller that wants to serialize it itself (or hand it to
// promhttp).
func (r *Registry) Gather() ([]*dto.MetricFamily, error) { return r.reg.Gather() }

// ObserveProbe runs fn and records its wall-clock duration against
// ProbeLatency. Intended to wrap exactly one organelle probe fan-out.
func (r *Registry) ObserveProbe(fn func()) {
	start := time.Now()
	fn()
	r.ProbeLatency.Observe(time.Since(start).Seconds())
}
