// apps/go-server/internal/metrics/metrics.go
//
// Prometheus collectors for the memory game server.
// Registered on the default registry at init; served by /metrics.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RoundsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "memory_rounds_started_total",
			Help: "Rounds started, including restarts",
		},
	)
	RoundsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_rounds_finished_total",
			Help: "Rounds finished, by reason",
		},
		[]string{"reason"},
	)
	Turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_turns_total",
			Help: "Resolved turns, by outcome",
		},
		[]string{"outcome"},
	)
	ActiveRounds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_active_rounds",
			Help: "Rounds currently held by the store",
		},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_http_requests_total",
			Help: "HTTP requests, by route pattern and status code",
		},
		[]string{"route", "code"},
	)
)

// Finish reasons.
const (
	ReasonCleared = "cleared"
	ReasonTimeout = "timeout"
)

// Turn outcomes.
const (
	OutcomeMatch    = "match"
	OutcomeMismatch = "mismatch"
	OutcomeTrap     = "trap"
)

func init() {
	prometheus.MustRegister(RoundsStarted)
	prometheus.MustRegister(RoundsFinished)
	prometheus.MustRegister(Turns)
	prometheus.MustRegister(ActiveRounds)
	prometheus.MustRegister(HTTPRequests)
}
