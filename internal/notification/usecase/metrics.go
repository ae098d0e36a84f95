package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Name:      "dispatch_outcomes_total",
			Help:      "Notification records moved to a terminal status, by status.",
		},
		[]string{"status"},
	)

	pushTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Name:      "push_tokens_total",
			Help:      "Device tokens submitted to the push transport, by result.",
		},
		[]string{"result"},
	)

	prunedTokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "notify",
			Name:      "pruned_tokens_total",
			Help:      "Device tokens deleted after the push transport rejected them.",
		},
	)

	remindersScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notify",
			Name:      "reminders_scheduled_total",
			Help:      "Reminder records created, by kind (event or occurrence).",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(dispatchOutcomes, pushTokens, prunedTokens, remindersScheduled)
}
