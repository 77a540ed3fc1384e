// Package metrics exposes prometheus metrics about tracing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TracesTotal counts traces by mode and outcome ("ok" or "error").
	TracesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fxtrace",
		Name:      "traces_total",
		Help:      "Total traces by mode and outcome",
	}, []string{"mode", "outcome"})

	// TraceDuration tracks trace latency.
	TraceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fxtrace",
		Name:      "trace_duration_seconds",
		Help:      "Trace duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	}, []string{"mode"})

	// NodesEmitted counts graph nodes by kind.
	NodesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fxtrace",
		Name:      "nodes_emitted_total",
		Help:      "Total graph nodes emitted by node kind",
	}, []string{"op"})

	// DecompositionsApplied counts decompositions by operator and source
	// ("table" or "builtin").
	DecompositionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fxtrace",
		Name:      "decompositions_applied_total",
		Help:      "Total decompositions applied by operator",
	}, []string{"operator", "source"})

	// ConstantsPropagated counts operator results that carry a constant value.
	ConstantsPropagated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fxtrace",
		Name:      "constants_propagated_total",
		Help:      "Total traced values annotated with a constant",
	})
)
