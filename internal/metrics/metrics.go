// Package metrics instruments method dispatch with Prometheus collectors.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbright/memora-native/internal/bridge"
)

const namespace = "memora_native"

const (
	OutcomeOK            = "ok"
	OutcomeUnimplemented = "unimplemented"
	OutcomeError         = "error"

	// otherMethod labels every unroutable method name.
	otherMethod = "other"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Dispatch holds the per-method call counters and latency histogram.
type Dispatch struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewDispatch creates and registers dispatch metrics on reg.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	m := &Dispatch{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "calls_total",
			Help:      "Method calls handled by the dispatcher, by outcome.",
		}, []string{"method", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent handling one method call.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"method"}),
	}
	reg.MustRegister(m.Calls, m.Duration)
	return m
}

// Instrument wraps inv so every call is counted and timed.
func (m *Dispatch) Instrument(inv bridge.Invoker) bridge.Invoker {
	return instrumented{next: inv, metrics: m}
}

type instrumented struct {
	next    bridge.Invoker
	metrics *Dispatch
}

func (i instrumented) Invoke(ctx context.Context, method string, arguments json.RawMessage) (any, error) {
	label := method
	if !bridge.Known(method) {
		label = otherMethod
	}

	start := time.Now()
	value, err := i.next.Invoke(ctx, method, arguments)
	i.metrics.Duration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	outcome := OutcomeOK
	switch {
	case errors.Is(err, bridge.ErrNotImplemented):
		outcome = OutcomeUnimplemented
	case err != nil:
		outcome = OutcomeError
	}
	i.metrics.Calls.WithLabelValues(label, outcome).Inc()
	return value, err
}
