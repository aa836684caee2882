package services

import (
	"context"
	"fmt"
	"io"

	"payouts/constants"
	apperrors "payouts/errors"
	"payouts/models"
	"payouts/services/audit"
	"payouts/services/logger"
)

// Principal is the authenticated caller, taken from the bearer token.
type Principal struct {
	UserID uint
	Role   int
}

func (p Principal) IsAdmin() bool    { return p.Role == constants.RoleAdmin }
func (p Principal) IsProvider() bool { return p.Role == constants.RoleProvider }

// SettlementAuthority is the access-control boundary in front of the ledger and
// the workflow. Only admins resolve requests; providers create and read their own.
type SettlementAuthority struct {
	workflow *WithdrawalWorkflow
	ledger   *LedgerService
	store    *WithdrawalStore
	balance  *BalanceCalculator
	runner   *TxRunner
	receipts ReceiptUploader
	auditor  audit.Recorder
	logger   logger.Logger
}

type SettlementAuthorityOptions struct {
	Workflow *WithdrawalWorkflow
	Ledger   *LedgerService
	Store    *WithdrawalStore
	Balance  *BalanceCalculator
	Runner   *TxRunner
	Receipts ReceiptUploader
	Auditor  audit.Recorder
	Logger   logger.Logger
}

func NewSettlementAuthority(opts SettlementAuthorityOptions) *SettlementAuthority {
	a := &SettlementAuthority{
		workflow: opts.Workflow,
		ledger:   opts.Ledger,
		store:    opts.Store,
		balance:  opts.Balance,
		runner:   opts.Runner,
		receipts: opts.Receipts,
		auditor:  opts.Auditor,
		logger:   opts.Logger,
	}
	if a.logger == nil {
		a.logger = logger.NewNopLogger()
	}
	return a
}

func forbidden(action string) error {
	return apperrors.NewAppError(apperrors.ErrCodeForbidden, "not allowed to "+action, apperrors.ErrForbidden)
}

func (a *SettlementAuthority) requireAdmin(p Principal, action string) error {
	if !p.IsAdmin() {
		a.logger.Warn("user %d (role %d) tried to %s", p.UserID, p.Role, action)
		return forbidden(action)
	}
	return nil
}

func (a *SettlementAuthority) requireProvider(p Principal, action string) error {
	if !p.IsProvider() {
		a.logger.Warn("user %d (role %d) tried to %s", p.UserID, p.Role, action)
		return forbidden(action)
	}
	return nil
}

// CreateRequest files a withdrawal on behalf of the calling provider.
func (a *SettlementAuthority) CreateRequest(ctx context.Context, p Principal, in CreateWithdrawalInput) (*models.WithdrawalRequest, error) {
	if err := a.requireProvider(p, "request a withdrawal"); err != nil {
		return nil, err
	}
	in.ProviderID = p.UserID
	return a.workflow.CreateRequest(ctx, in)
}

// Resolve approves or rejects a pending request as the calling admin.
func (a *SettlementAuthority) Resolve(ctx context.Context, p Principal, requestID uint, decision models.WithdrawalStatus, notes string) (*models.WithdrawalRequest, error) {
	if err := a.requireAdmin(p, "resolve withdrawals"); err != nil {
		return nil, err
	}
	return a.workflow.Resolve(ctx, requestID, decision, p.UserID, notes)
}

func (a *SettlementAuthority) ListOwn(ctx context.Context, p Principal, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	if err := a.requireProvider(p, "list own withdrawals"); err != nil {
		return nil, 0, err
	}
	return a.store.ListForProvider(ctx, p.UserID, page, limit)
}

// GetOwn returns a request to its provider or to any admin.
func (a *SettlementAuthority) GetOwn(ctx context.Context, p Principal, requestID uint) (*models.WithdrawalRequest, error) {
	if !p.IsAdmin() && !p.IsProvider() {
		return nil, forbidden("read withdrawals")
	}
	req, err := a.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if p.IsProvider() && req.ProviderID != p.UserID {
		return nil, forbidden("read another provider's withdrawal")
	}
	return req, nil
}

// Balance returns a provider's balance. Providers may only read their own.
func (a *SettlementAuthority) Balance(ctx context.Context, p Principal, providerID uint) (BalanceSummary, error) {
	switch {
	case p.IsAdmin():
	case p.IsProvider() && providerID == p.UserID:
	default:
		return BalanceSummary{}, forbidden("read this balance")
	}
	return a.balance.Summary(a.runner.DB().WithContext(ctx), providerID)
}

func (a *SettlementAuthority) Earnings(ctx context.Context, p Principal, page, limit int) ([]models.Earning, int64, error) {
	if err := a.requireProvider(p, "list earnings"); err != nil {
		return nil, 0, err
	}
	return a.ledger.ListEarningsPage(ctx, p.UserID, page, limit)
}

func (a *SettlementAuthority) ListAll(ctx context.Context, p Principal, filter WithdrawalFilter) ([]models.WithdrawalRequest, int64, error) {
	if err := a.requireAdmin(p, "list withdrawals"); err != nil {
		return nil, 0, err
	}
	return a.store.List(ctx, filter)
}

func (a *SettlementAuthority) ListPending(ctx context.Context, p Principal) ([]models.WithdrawalRequest, error) {
	if err := a.requireAdmin(p, "list pending withdrawals"); err != nil {
		return nil, err
	}
	return a.store.ListPending(ctx)
}

// RecordEarning lets an admin feed an order-completion event over HTTP.
func (a *SettlementAuthority) RecordEarning(ctx context.Context, p Principal, in RecordEarningInput) (*models.Earning, bool, error) {
	if err := a.requireAdmin(p, "record earnings"); err != nil {
		return nil, false, err
	}
	return a.ledger.RecordEarning(ctx, in)
}

// AttachReceipt uploads the payout proof of an approved request.
func (a *SettlementAuthority) AttachReceipt(ctx context.Context, p Principal, requestID uint, filename string, file io.Reader) (*models.WithdrawalRequest, error) {
	if err := a.requireAdmin(p, "attach receipts"); err != nil {
		return nil, err
	}
	if a.receipts == nil {
		return nil, apperrors.NewAppError(apperrors.ErrCodeUnavailable, "receipt storage is not configured", apperrors.ErrUnavailable)
	}

	req, err := a.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.WithdrawalStatusApproved {
		return nil, apperrors.NewAppError(
			apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("withdrawal request %d is %s; receipts can only be attached to approved requests", req.ID, req.Status),
			apperrors.ErrInvalidTransition,
		)
	}

	url, err := a.receipts.Upload(ctx, requestID, filename, file)
	if err != nil {
		a.logger.Error("failed to upload receipt for request %d: %v", requestID, err)
		return nil, apperrors.NewAppError(apperrors.ErrCodeUnavailable, "could not store the receipt", fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
	}

	updated, err := a.store.SetReceiptURL(ctx, requestID, url)
	if err != nil {
		return nil, err
	}
	if a.auditor != nil {
		if err := a.auditor.Record(ctx, audit.Entry{
			Action:     audit.ActionReceiptAttached,
			ProviderID: updated.ProviderID,
			ActorID:    p.UserID,
			RequestID:  updated.ID,
			Amount:     updated.Amount,
			Notes:      url,
		}); err != nil {
			a.logger.Error("failed to audit receipt for request %d: %v", requestID, err)
		}
	}
	a.logger.Info("receipt attached to withdrawal request %d by admin %d", requestID, p.UserID)
	return updated, nil
}
