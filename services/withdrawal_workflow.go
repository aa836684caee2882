package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"payouts/constants"
	apperrors "payouts/errors"
	"payouts/models"
	"payouts/services/audit"
	"payouts/services/events"
	"payouts/services/logger"
	"payouts/services/metrics"
	"payouts/services/notification"
	"payouts/validator"

	"gorm.io/gorm"
)

type CreateWithdrawalInput struct {
	ProviderID    uint
	Amount        int64
	PaymentMethod string
	PayoutDetails models.PayoutDetails
	Notes         string
}

// WithdrawalWorkflow owns the pending -> approved | rejected lifecycle and the
// reservation of earnings that backs every pending request.
type WithdrawalWorkflow struct {
	runner    *TxRunner
	store     *WithdrawalStore
	balance   *BalanceCalculator
	logger    logger.Logger
	publisher events.Publisher
	auditor   audit.Recorder
	notifier  notification.Service
}

type WithdrawalWorkflowOptions struct {
	Runner    *TxRunner
	Store     *WithdrawalStore
	Balance   *BalanceCalculator
	Logger    logger.Logger
	Publisher events.Publisher
	Auditor   audit.Recorder
	Notifier  notification.Service
}

func NewWithdrawalWorkflow(opts WithdrawalWorkflowOptions) *WithdrawalWorkflow {
	w := &WithdrawalWorkflow{
		runner:    opts.Runner,
		store:     opts.Store,
		balance:   opts.Balance,
		logger:    opts.Logger,
		publisher: opts.Publisher,
		auditor:   opts.Auditor,
		notifier:  opts.Notifier,
	}
	if w.store == nil {
		w.store = NewWithdrawalStore(opts.Runner.DB())
	}
	if w.balance == nil {
		w.balance = NewBalanceCalculator()
	}
	if w.logger == nil {
		w.logger = logger.NewNopLogger()
	}
	return w
}

// CreateRequest validates the request, checks the provider's withdrawable
// balance and inserts a pending request holding the oldest unreserved earnings
// that add up to the amount. The check and the insert run under the provider lock.
func (w *WithdrawalWorkflow) CreateRequest(ctx context.Context, in CreateWithdrawalInput) (*models.WithdrawalRequest, error) {
	in.Notes = strings.TrimSpace(in.Notes)
	if err := validateWithdrawalInput(in); err != nil {
		metrics.WithdrawalRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	var created *models.WithdrawalRequest
	err := w.runner.WithProviderLock(ctx, in.ProviderID, func(tx *gorm.DB) error {
		summary, err := w.balance.Summary(tx, in.ProviderID)
		if err != nil {
			return err
		}
		if in.Amount > summary.WithdrawableBalance {
			return apperrors.NewAppError(
				apperrors.ErrCodeInsufficientFund,
				fmt.Sprintf("requested %s but only %s is available for withdrawal",
					notification.FormatCents(in.Amount), notification.FormatCents(summary.WithdrawableBalance)),
				apperrors.ErrInsufficientBalance,
			)
		}

		store := w.store.WithTx(tx)
		candidates, err := store.UnreservedEarnings(ctx, in.ProviderID)
		if err != nil {
			return err
		}
		earningIDs, err := selectFIFO(candidates, in.Amount)
		if err != nil {
			return err
		}

		req := &models.WithdrawalRequest{
			ProviderID:    in.ProviderID,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			PayoutDetails: in.PayoutDetails,
			RequestNotes:  in.Notes,
		}
		if err := store.Create(ctx, req); err != nil {
			return err
		}
		if err := store.Reserve(ctx, req.ID, earningIDs); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		w.countCreateFailure(err)
		w.logger.Warn("withdrawal request for provider %d (amount %d) refused: %v", in.ProviderID, in.Amount, err)
		return nil, err
	}

	metrics.WithdrawalRequests.WithLabelValues(metrics.OutcomeCreated).Inc()
	w.logger.Info("withdrawal request %d created for provider %d: amount=%d method=%s",
		created.ID, created.ProviderID, created.Amount, created.PaymentMethod)
	w.publish(ctx, constants.RoutingWithdrawalCreated, withdrawalEvent(created, nil))
	w.audit(ctx, audit.Entry{
		Action:     audit.ActionWithdrawalCreated,
		ProviderID: created.ProviderID,
		ActorID:    created.ProviderID,
		RequestID:  created.ID,
		Amount:     created.Amount,
		Notes:      created.RequestNotes,
	})
	return created, nil
}

// Resolve approves or rejects a pending request. Approval marks exactly the
// reserved earnings withdrawn; rejection releases them. Resolving a request
// that is no longer pending fails with ErrInvalidTransition.
func (w *WithdrawalWorkflow) Resolve(ctx context.Context, requestID uint, decision models.WithdrawalStatus, adminID uint, notes string) (*models.WithdrawalRequest, error) {
	notes = strings.TrimSpace(notes)
	if err := validateDecision(decision, notes); err != nil {
		metrics.WithdrawalResolutions.WithLabelValues(string(decision), metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	current, err := w.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var (
		resolved   *models.WithdrawalRequest
		earningIDs []uint
	)
	err = w.runner.WithProviderLock(ctx, current.ProviderID, func(tx *gorm.DB) error {
		store := w.store.WithTx(tx)
		req, err := store.Get(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != models.WithdrawalStatusPending {
			return apperrors.NewAppError(
				apperrors.ErrCodeInvalidTransition,
				fmt.Sprintf("withdrawal request %d is already %s", req.ID, req.Status),
				apperrors.ErrInvalidTransition,
			)
		}

		if decision == models.WithdrawalStatusRejected {
			if err := store.ReleaseReservations(ctx, req.ID); err != nil {
				return err
			}
		} else {
			earningIDs, err = w.consumeReserved(ctx, tx, req)
			if err != nil {
				return err
			}
		}

		resolved, err = store.TransitionStatus(ctx, req.ID, decision, adminID, notes)
		return err
	})
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			outcome = metrics.OutcomeInvalid
		}
		metrics.WithdrawalResolutions.WithLabelValues(string(decision), outcome).Inc()
		if errors.Is(err, apperrors.ErrLedgerInvariant) {
			w.logger.Error("withdrawal request %d: %v", requestID, err)
		} else {
			w.logger.Warn("withdrawal request %d: %s by admin %d refused: %v", requestID, decision, adminID, err)
		}
		return nil, err
	}

	metrics.WithdrawalResolutions.WithLabelValues(string(decision), metrics.OutcomeSuccess).Inc()
	if decision == models.WithdrawalStatusApproved {
		metrics.WithdrawnAmount.Add(float64(resolved.Amount))
	}
	w.logger.Info("withdrawal request %d %s by admin %d (provider %d, amount %d, earnings %v)",
		resolved.ID, resolved.Status, adminID, resolved.ProviderID, resolved.Amount, earningIDs)
	w.afterResolve(ctx, resolved, earningIDs)
	return resolved, nil
}

// consumeReserved marks the request's reserved earnings withdrawn after
// re-checking the balance and the reservation total.
func (w *WithdrawalWorkflow) consumeReserved(ctx context.Context, tx *gorm.DB, req *models.WithdrawalRequest) ([]uint, error) {
	available, err := w.balance.AvailableBalance(tx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if req.Amount > available {
		return nil, apperrors.NewAppError(
			apperrors.ErrCodeInsufficientFund,
			fmt.Sprintf("request %d needs %s but the provider only has %s available",
				req.ID, notification.FormatCents(req.Amount), notification.FormatCents(available)),
			apperrors.ErrInsufficientBalance,
		)
	}

	reserved, err := w.store.WithTx(tx).ReservedEarnings(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	var sum int64
	ids := make([]uint, 0, len(reserved))
	for _, e := range reserved {
		if e.IsWithdrawn || e.ProviderID != req.ProviderID {
			return nil, ledgerInvariant("request %d holds earning %d which is withdrawn or owned by another provider", req.ID, e.ID)
		}
		sum += e.ProviderAmount
		ids = append(ids, e.ID)
	}
	if sum != req.Amount {
		return nil, ledgerInvariant("request %d reserves %d but asks for %d", req.ID, sum, req.Amount)
	}

	res := tx.Model(&models.Earning{}).
		Where("id IN ? AND is_withdrawn = ?", ids, false).
		Updates(map[string]interface{}{
			"is_withdrawn":            true,
			"withdrawn_by_request_id": req.ID,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return nil, ledgerInvariant("request %d marked %d of %d reserved earnings", req.ID, res.RowsAffected, len(ids))
	}
	return ids, nil
}

func (w *WithdrawalWorkflow) afterResolve(ctx context.Context, req *models.WithdrawalRequest, earningIDs []uint) {
	routingKey := constants.RoutingWithdrawalRejected
	action := audit.ActionWithdrawalRejected
	if req.Status == models.WithdrawalStatusApproved {
		routingKey = constants.RoutingWithdrawalApproved
		action = audit.ActionWithdrawalApproved
	}

	w.publish(ctx, routingKey, withdrawalEvent(req, earningIDs))

	var actor uint
	if req.ProcessedBy != nil {
		actor = *req.ProcessedBy
	}
	w.audit(ctx, audit.Entry{
		Action:     action,
		ProviderID: req.ProviderID,
		ActorID:    actor,
		RequestID:  req.ID,
		Amount:     req.Amount,
		Notes:      req.AdminNotes,
	})

	if w.notifier != nil {
		msg := notification.NewMessageBuilder(req.ID, req.Amount, string(req.Status)).WithNotes(req.AdminNotes).Build()
		if err := w.notifier.SendToUser(req.ProviderID, msg); err != nil {
			metrics.SideEffectFailures.WithLabelValues("notify").Inc()
			w.logger.Error("failed to notify provider %d about request %d: %v", req.ProviderID, req.ID, err)
		}
	}
}

func (w *WithdrawalWorkflow) publish(ctx context.Context, routingKey string, event events.WithdrawalEvent) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, routingKey, event); err != nil {
		metrics.SideEffectFailures.WithLabelValues("publish").Inc()
		w.logger.Error("failed to publish %s for request %d: %v", routingKey, event.RequestID, err)
	}
}

func (w *WithdrawalWorkflow) audit(ctx context.Context, entry audit.Entry) {
	if w.auditor == nil {
		return
	}
	if err := w.auditor.Record(ctx, entry); err != nil {
		metrics.SideEffectFailures.WithLabelValues("audit").Inc()
		w.logger.Error("failed to write audit entry %s for request %d: %v", entry.Action, entry.RequestID, err)
	}
}

func (w *WithdrawalWorkflow) countCreateFailure(err error) {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		metrics.WithdrawalRequests.WithLabelValues(metrics.OutcomeInsufficient).Inc()
	case errors.Is(err, apperrors.ErrValidation):
		metrics.WithdrawalRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
	default:
		metrics.WithdrawalRequests.WithLabelValues(metrics.OutcomeError).Inc()
	}
}

func withdrawalEvent(req *models.WithdrawalRequest, earningIDs []uint) events.WithdrawalEvent {
	event := events.WithdrawalEvent{
		RequestID:     req.ID,
		ProviderID:    req.ProviderID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Status:        string(req.Status),
		AdminNotes:    req.AdminNotes,
		EarningIDs:    earningIDs,
		OccurredAt:    time.Now().UTC(),
	}
	if req.ProcessedBy != nil {
		event.ProcessedBy = *req.ProcessedBy
	}
	return event
}

func validateWithdrawalInput(in CreateWithdrawalInput) error {
	if in.ProviderID == 0 {
		return apperrors.Validation(apperrors.ErrCodeInvalidProviderID, "provider id is required")
	}
	if in.Amount <= 0 {
		return apperrors.Validation(apperrors.ErrCodeInvalidAmount, "amount must be greater than zero")
	}
	return validator.ValidatePayoutDetails(in.PaymentMethod, in.PayoutDetails)
}

func validateDecision(decision models.WithdrawalStatus, notes string) error {
	switch decision {
	case models.WithdrawalStatusApproved:
		return nil
	case models.WithdrawalStatusRejected:
		if notes == "" {
			return apperrors.Validation(apperrors.ErrCodeRequiredField, "a reason is required when rejecting a withdrawal")
		}
		return nil
	}
	return apperrors.Validation(apperrors.ErrCodeInvalidDecision, fmt.Sprintf("decision must be %q or %q", constants.DecisionApproved, constants.DecisionRejected))
}

// selectFIFO walks earnings oldest first and returns the ids whose amounts add
// up to exactly amount. Earnings are never split, so an amount that falls
// between two cumulative sums is refused with the nearest valid amounts.
func selectFIFO(earnings []models.Earning, amount int64) ([]uint, error) {
	var (
		sum int64
		ids []uint
	)
	for _, e := range earnings {
		if sum == amount {
			break
		}
		next := sum + e.ProviderAmount
		if next > amount {
			return nil, apperrors.Validation(apperrors.ErrCodeAmountNotAligned, fmt.Sprintf(
				"amount must match whole earnings taken oldest first; nearest valid amounts are %s and %s",
				notification.FormatCents(sum), notification.FormatCents(next)))
		}
		sum = next
		ids = append(ids, e.ID)
	}
	if sum != amount {
		return nil, apperrors.Validation(apperrors.ErrCodeAmountNotAligned, fmt.Sprintf(
			"amount must match whole earnings taken oldest first; at most %s can be requested",
			notification.FormatCents(sum)))
	}
	return ids, nil
}

func ledgerInvariant(format string, args ...interface{}) error {
	return apperrors.NewAppError(apperrors.ErrCodeLedgerInvariant, fmt.Sprintf(format, args...), apperrors.ErrLedgerInvariant)
}
