// Package bot – Prometheus instrumentation for the dispatch pipeline.
//
// Label cardinality is bounded: "command" is the canonical command name
// (a static set), "status" is ok|error. Rejected dispatches (ban, permission,
// cooldown, unknown) are counted separately without a command label where
// the token is attacker-controlled.
package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	// messagesTotal counts inbound chat events by type.
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbus_messages_total",
			Help: "Total number of inbound chat events.",
		},
		[]string{"type"},
	)

	// commandsTotal counts completed command executions by outcome.
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbus_commands_total",
			Help: "Total number of executed commands.",
		},
		[]string{"command", "status"},
	)

	// commandDuration records handler latency per command.
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nimbus_command_duration_seconds",
			Help:    "Duration of command handler execution in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	// rejectionsTotal counts dispatches stopped before the handler ran.
	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nimbus_dispatch_rejections_total",
			Help: "Dispatches rejected before handler execution.",
		},
		[]string{"reason"}, // banned|maintenance|unknown|permission|cooldown
	)

	// xpAwardsTotal counts XP grants.
	xpAwardsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbus_xp_awards_total",
			Help: "Total number of XP awards.",
		},
	)

	// levelUpsTotal counts level rollovers.
	levelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nimbus_level_ups_total",
			Help: "Total number of user level-ups.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		messagesTotal,
		commandsTotal,
		commandDuration,
		rejectionsTotal,
		xpAwardsTotal,
		levelUpsTotal,
	)
}
