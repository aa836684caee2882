package jobs

import (
	"context"
	"time"

	"payouts/models"
	"payouts/services/logger"
	"payouts/services/metrics"

	"gorm.io/gorm"
)

// Violation kinds reported by the reconciler.
const (
	ViolationApprovedMismatch = "approved_sum_mismatch"
	ViolationPendingMismatch  = "pending_reservation_mismatch"
	ViolationWithdrawnHeld    = "withdrawn_earning_reserved"
)

type Violation struct {
	Kind      string
	RequestID uint
	EarningID uint
	Expected  int64
	Actual    int64
}

type ReconcileReport struct {
	CheckedAt  time.Time
	Violations []Violation
}

// Reconciler cross-checks withdrawal requests against the earnings they consumed or hold.
type Reconciler struct {
	db         *gorm.DB
	logger     logger.Logger
	staleAfter time.Duration
	now        func() time.Time
}

func NewReconciler(db *gorm.DB, log logger.Logger, staleAfter time.Duration) *Reconciler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if staleAfter <= 0 {
		staleAfter = 72 * time.Hour
	}
	return &Reconciler{db: db, logger: log, staleAfter: staleAfter, now: time.Now}
}

type requestSum struct {
	ID       uint
	Amount   int64
	Consumed int64
}

func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{CheckedAt: r.now()}
	db := r.db.WithContext(ctx)

	var approved []requestSum
	err := db.Raw(`
		SELECT w.id AS id, w.amount AS amount, CAST(COALESCE(SUM(e.provider_amount), 0) AS BIGINT) AS consumed
		FROM withdrawal_requests w
		LEFT JOIN earnings e ON e.withdrawn_by_request_id = w.id AND e.is_withdrawn = ?
		WHERE w.status = ?
		GROUP BY w.id, w.amount
		HAVING COALESCE(SUM(e.provider_amount), 0) <> w.amount`,
		true, string(models.WithdrawalStatusApproved)).
		Scan(&approved).Error
	if err != nil {
		return report, err
	}
	for _, s := range approved {
		report.Violations = append(report.Violations, Violation{
			Kind: ViolationApprovedMismatch, RequestID: s.ID, Expected: s.Amount, Actual: s.Consumed,
		})
	}

	var pending []requestSum
	err = db.Raw(`
		SELECT w.id AS id, w.amount AS amount, CAST(COALESCE(SUM(e.provider_amount), 0) AS BIGINT) AS consumed
		FROM withdrawal_requests w
		LEFT JOIN withdrawal_reservations r ON r.withdrawal_request_id = w.id
		LEFT JOIN earnings e ON e.id = r.earning_id
		WHERE w.status = ?
		GROUP BY w.id, w.amount
		HAVING COALESCE(SUM(e.provider_amount), 0) <> w.amount`,
		string(models.WithdrawalStatusPending)).
		Scan(&pending).Error
	if err != nil {
		return report, err
	}
	for _, s := range pending {
		report.Violations = append(report.Violations, Violation{
			Kind: ViolationPendingMismatch, RequestID: s.ID, Expected: s.Amount, Actual: s.Consumed,
		})
	}

	var held []struct {
		EarningID uint
		RequestID uint
	}
	err = db.Raw(`
		SELECT e.id AS earning_id, w.id AS request_id
		FROM earnings e
		JOIN withdrawal_reservations r ON r.earning_id = e.id
		JOIN withdrawal_requests w ON w.id = r.withdrawal_request_id
		WHERE e.is_withdrawn = ? AND w.status = ?`,
		true, string(models.WithdrawalStatusPending)).
		Scan(&held).Error
	if err != nil {
		return report, err
	}
	for _, h := range held {
		report.Violations = append(report.Violations, Violation{
			Kind: ViolationWithdrawnHeld, RequestID: h.RequestID, EarningID: h.EarningID,
		})
	}

	for _, v := range report.Violations {
		metrics.ReconciliationViolations.WithLabelValues(v.Kind).Inc()
		r.logger.Error("reconciliation: %s on request %d (earning %d, expected %d, actual %d)",
			v.Kind, v.RequestID, v.EarningID, v.Expected, v.Actual)
	}
	if len(report.Violations) == 0 {
		r.logger.Info("reconciliation: ledger consistent")
	}
	return report, nil
}

// ReportStale sets the stale-pending gauge and returns the requests waiting
// longer than the configured threshold.
func (r *Reconciler) ReportStale(ctx context.Context) ([]models.WithdrawalRequest, error) {
	cutoff := r.now().Add(-r.staleAfter)
	var stale []models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(models.WithdrawalStatusPending), cutoff).
		Order("created_at ASC").
		Find(&stale).Error
	if err != nil {
		return nil, err
	}
	metrics.StalePendingRequests.Set(float64(len(stale)))
	if len(stale) > 0 {
		r.logger.Warn("%d withdrawal requests pending for more than %s, oldest is #%d", len(stale), r.staleAfter, stale[0].ID)
	}
	return stale, nil
}
