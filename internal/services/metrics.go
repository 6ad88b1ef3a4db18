package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveclass_reminders_dispatched_total",
		Help: "Session reminders dispatched by the polling sweep.",
	})

	sessionsAutoClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "liveclass_sessions_auto_closed_total",
		Help: "Sessions closed by the reconciliation poller after the remote session ended.",
	})

	joinsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveclass_joins_granted_total",
		Help: "Join requests that received a redirect to the conference server.",
	}, []string{"role"})

	joinsDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "liveclass_joins_denied_total",
		Help: "Join requests denied, by denial reason.",
	}, []string{"reason"})
)
