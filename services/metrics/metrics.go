package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EarningsRecorded counts order-completion events by outcome (created, duplicate, rejected).
	EarningsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_earnings_recorded_total",
			Help: "Order-completion events processed by the earnings ledger",
		},
		[]string{"outcome"},
	)

	// WithdrawalRequests counts createRequest calls by outcome.
	WithdrawalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_withdrawal_requests_total",
			Help: "Withdrawal requests submitted by providers",
		},
		[]string{"outcome"},
	)

	// WithdrawalResolutions counts resolve calls by decision and outcome.
	WithdrawalResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_withdrawal_resolutions_total",
			Help: "Withdrawal resolutions performed by admins",
		},
		[]string{"decision", "outcome"},
	)

	// WithdrawnAmount sums approved payouts in the smallest currency unit.
	WithdrawnAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_withdrawn_amount_total",
			Help: "Total amount paid out through approved withdrawals, in cents",
		},
	)

	// LockRetries counts provider-lock transactions retried after contention.
	LockRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payouts_provider_lock_retries_total",
			Help: "Provider-scoped transactions retried after lock or serialization contention",
		},
	)

	// ReconciliationViolations counts ledger inconsistencies found by the nightly job.
	ReconciliationViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_reconciliation_violations_total",
			Help: "Ledger inconsistencies detected during reconciliation",
		},
		[]string{"kind"},
	)

	// StalePendingRequests is the number of pending requests older than the stale threshold.
	StalePendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "payouts_stale_pending_requests",
			Help: "Pending withdrawal requests older than the configured threshold",
		},
	)

	// SideEffectFailures counts post-commit side effects that failed (publish, audit, notify).
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_side_effect_failures_total",
			Help: "Post-commit side effects that failed",
		},
		[]string{"effect"},
	)
)

// Outcome labels
const (
	OutcomeCreated      = "created"
	OutcomeDuplicate    = "duplicate"
	OutcomeRejected     = "rejected"
	OutcomeInsufficient = "insufficient"
	OutcomeInvalid      = "invalid"
	OutcomeSuccess      = "success"
	OutcomeError        = "error"
)
