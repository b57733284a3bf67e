// Package metrics holds Prometheus instrumentation for the turn pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for turn pipeline observability.
type Metrics struct {
	TurnsTotal     *prometheus.CounterVec // Turns processed, by outcome (ok, error, disconnected)
	TurnDuration   prometheus.Histogram   // End-to-end turn duration in seconds
	EventsTotal    *prometheus.CounterVec // Stream events emitted, by event type
	ToolCallsTotal *prometheus.CounterVec // Tool invocations observed, by tool name
	ActiveTurns    prometheus.Gauge       // Turns currently streaming
}

// New creates pipeline metrics registered on the given registerer. Tests pass
// a fresh prometheus.NewRegistry to avoid global-state collisions.
func New(reg prometheus.Registerer) *Metrics {
	turnsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sre_agent_turns_total",
		Help: "Total number of turns processed, labelled by outcome",
	}, []string{"outcome"})

	turnDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sre_agent_turn_duration_seconds",
		Help:    "End-to-end turn duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sre_agent_stream_events_total",
		Help: "Total number of stream events emitted, labelled by type",
	}, []string{"type"})

	toolCallsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sre_agent_tool_calls_total",
		Help: "Total number of tool invocations observed, labelled by tool",
	}, []string{"tool"})

	activeTurns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sre_agent_active_turns",
		Help: "Number of turns currently streaming",
	})

	reg.MustRegister(turnsTotal, turnDuration, eventsTotal, toolCallsTotal, activeTurns)

	return &Metrics{
		TurnsTotal:     turnsTotal,
		TurnDuration:   turnDuration,
		EventsTotal:    eventsTotal,
		ToolCallsTotal: toolCallsTotal,
		ActiveTurns:    activeTurns,
	}
}

// Turn outcome label values.
const (
	OutcomeOK           = "ok"
	OutcomeError        = "error"
	OutcomeDisconnected = "disconnected"
)
