package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		schedulerTicksTotal,
		schedulerTickDuration,
		remindersSentTotal,
		remindersFailedTotal,
		subscriptionsRevokedTotal,
		revokeFailuresTotal,
		pendingRevocations,
	)
}

var (
	schedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks by outcome (ok/error/skipped).",
		},
		[]string{"outcome"},
	)

	schedulerTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_tick_duration_seconds",
			Help:      "Wall time of one scheduler tick.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	remindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Prayer reminders delivered, by prayer.",
		},
		[]string{"prayer"},
	)

	remindersFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Prayer reminders that could not be delivered, by failure reason.",
		},
		[]string{"reason"},
	)

	subscriptionsRevokedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_revoked_total",
			Help:      "Subscriptions revoked after the user became unreachable, by policy.",
		},
		[]string{"policy"},
	)

	revokeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_revoke_failures_total",
			Help:      "Revocations that could not be written to the store.",
		},
	)

	pendingRevocations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscription_revocations_pending",
			Help:      "Revocations waiting to be retried on the next tick.",
		},
	)
)

func IncTick(outcome string) {
	schedulerTicksTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveTick(d time.Duration) {
	schedulerTickDuration.Observe(d.Seconds())
}

func IncReminderSent(prayer string) {
	remindersSentTotal.WithLabelValues(norm(prayer)).Inc()
}

func IncReminderFailed(reason string) {
	remindersFailedTotal.WithLabelValues(norm(reason)).Inc()
}

func IncRevoked(policy string) {
	subscriptionsRevokedTotal.WithLabelValues(norm(policy)).Inc()
}

func IncRevokeFailure() {
	revokeFailuresTotal.Inc()
}

func SetPendingRevocations(n int) {
	pendingRevocations.Set(float64(n))
}
