// Package metrics exposes Prometheus collectors for the sync coordinator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	commandsEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallsync_commands_enqueued_total",
		Help: "Device commands enqueued, by command type",
	}, []string{"type"})

	commandAcks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallsync_command_acks_total",
		Help: "Command acks processed, by reported status",
	}, []string{"status"})

	heartbeats = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallsync_heartbeats_total",
		Help: "Device heartbeats accepted",
	})

	failovers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wallsync_failovers_total",
		Help: "Master failovers performed",
	})

	sessionsStopped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallsync_sessions_stopped_total",
		Help: "Sync sessions moved to a terminal status",
	}, []string{"status"})

	runningSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wallsync_running_sessions",
		Help: "Sync sessions currently in a non-terminal status",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		commandsEnqueued,
		commandAcks,
		heartbeats,
		failovers,
		sessionsStopped,
		runningSessions,
	)
}

// Handler returns the /metrics exposition handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func CommandEnqueued(cmdType string) { commandsEnqueued.WithLabelValues(cmdType).Inc() }

func CommandAcked(status string) { commandAcks.WithLabelValues(status).Inc() }

func HeartbeatAccepted() { heartbeats.Inc() }

func FailoverPerformed() { failovers.Inc() }

func SessionStopped(status string) { sessionsStopped.WithLabelValues(status).Inc() }

func SessionStarted() { runningSessions.Inc() }

func SessionFinished() { runningSessions.Dec() }
