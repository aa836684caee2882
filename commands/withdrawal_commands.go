package commands

import (
	"context"
	"fmt"

	"payouts/constants"
	apperrors "payouts/errors"
	"payouts/models"
	"payouts/services"
)

// Resolver is the part of SettlementAuthority the resolution commands drive.
type Resolver interface {
	Resolve(ctx context.Context, p services.Principal, requestID uint, decision models.WithdrawalStatus, notes string) (*models.WithdrawalRequest, error)
}

// WithdrawalCommand is one admin action on a withdrawal request.
type WithdrawalCommand interface {
	Execute(ctx context.Context) (*models.WithdrawalRequest, error)
}

type ApproveWithdrawalCommand struct {
	resolver  Resolver
	principal services.Principal
	requestID uint
	notes     string
}

func NewApproveWithdrawalCommand(r Resolver, p services.Principal, requestID uint, notes string) *ApproveWithdrawalCommand {
	return &ApproveWithdrawalCommand{resolver: r, principal: p, requestID: requestID, notes: notes}
}

func (c *ApproveWithdrawalCommand) Execute(ctx context.Context) (*models.WithdrawalRequest, error) {
	return c.resolver.Resolve(ctx, c.principal, c.requestID, models.WithdrawalStatusApproved, c.notes)
}

// RejectWithdrawalCommand releases the request's reserved earnings. Notes are required.
type RejectWithdrawalCommand struct {
	resolver  Resolver
	principal services.Principal
	requestID uint
	notes     string
}

func NewRejectWithdrawalCommand(r Resolver, p services.Principal, requestID uint, notes string) *RejectWithdrawalCommand {
	return &RejectWithdrawalCommand{resolver: r, principal: p, requestID: requestID, notes: notes}
}

func (c *RejectWithdrawalCommand) Execute(ctx context.Context) (*models.WithdrawalRequest, error) {
	return c.resolver.Resolve(ctx, c.principal, c.requestID, models.WithdrawalStatusRejected, c.notes)
}

// ForDecision picks the command for an API decision string.
func ForDecision(r Resolver, p services.Principal, requestID uint, decision, notes string) (WithdrawalCommand, error) {
	switch decision {
	case constants.DecisionApproved:
		return NewApproveWithdrawalCommand(r, p, requestID, notes), nil
	case constants.DecisionRejected:
		return NewRejectWithdrawalCommand(r, p, requestID, notes), nil
	default:
		return nil, apperrors.Validation(apperrors.ErrCodeInvalidDecision,
			fmt.Sprintf("decision must be %q or %q", constants.DecisionApproved, constants.DecisionRejected))
	}
}
