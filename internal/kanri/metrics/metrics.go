// Package metrics registers the Prometheus collectors Kanri exports on
// /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kanri"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	instructions *prometheus.CounterVec
	actions      *prometheus.CounterVec
	inference    *prometheus.HistogramVec
	pending      prometheus.Gauge
}

// MustNewMetrics creates the collectors and registers them with reg (the
// default registerer when nil). Collectors that are already registered are
// reused, so constructing twice against one registry is safe.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Natural-language instructions handled, by final status.",
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions executed, by kind and outcome.",
		}, []string{"kind", "result"}),
		inference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Latency of model calls, by outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 12, 16, 20, 30},
		}, []string{"outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_confirmations",
			Help:      "Destructive batches currently awaiting confirmation.",
		}),
	}

	m.instructions = register(reg, m.instructions)
	m.actions = register(reg, m.actions)
	m.inference = register(reg, m.inference)
	m.pending = register(reg, m.pending)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveInstruction counts one instruction with its final status.
func (m *Metrics) ObserveInstruction(status string) {
	if m == nil {
		return
	}
	m.instructions.WithLabelValues(status).Inc()
}

// ObserveAction counts one executed action.
func (m *Metrics) ObserveAction(kind string, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.actions.WithLabelValues(kind, result).Inc()
}

// ObserveInference records how long a model call took.
func (m *Metrics) ObserveInference(d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.inference.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetPending reports the number of outstanding confirmations.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}
