// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var chatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "assistants_link_chat_turns_total",
	Help: "Chat turns by outcome (ok, upstream_error, error)",
}, []string{"outcome"})

var evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "assistants_link_evaluations_total",
	Help: "Evaluator runs by outcome",
}, []string{"outcome"})

var upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "assistants_link_upstream_request_duration_seconds",
	Help:    "Latency of calls to the hosted agent API",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
}, []string{"op"})

// ChatTurn counts one finished chat turn.
func ChatTurn(outcome string) {
	chatTurns.WithLabelValues(outcome).Inc()
}

// Evaluation counts one evaluator run.
func Evaluation(outcome string) {
	evaluations.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the latency of a hosted API call started at start.
func ObserveUpstream(op string, start time.Time) {
	upstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
