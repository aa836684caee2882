package models

import (
	"fmt"
	"time"

	apperrors "payouts/errors"
)

// WithdrawalState defines what a request in a given status may do next.
type WithdrawalState interface {
	Approve(w *WithdrawalRequest, adminID uint, notes string, at time.Time) error
	Reject(w *WithdrawalRequest, adminID uint, notes string, at time.Time) error
}

// PendingWithdrawalState is the only state with outgoing transitions.
type PendingWithdrawalState struct{}

func (s *PendingWithdrawalState) Approve(w *WithdrawalRequest, adminID uint, notes string, at time.Time) error {
	stamp(w, WithdrawalStatusApproved, adminID, notes, at)
	return nil
}

func (s *PendingWithdrawalState) Reject(w *WithdrawalRequest, adminID uint, notes string, at time.Time) error {
	stamp(w, WithdrawalStatusRejected, adminID, notes, at)
	return nil
}

// TerminalWithdrawalState refuses every transition.
type TerminalWithdrawalState struct {
	status WithdrawalStatus
}

func (s *TerminalWithdrawalState) Approve(w *WithdrawalRequest, _ uint, _ string, _ time.Time) error {
	return invalidTransition(w.ID, s.status, WithdrawalStatusApproved)
}

func (s *TerminalWithdrawalState) Reject(w *WithdrawalRequest, _ uint, _ string, _ time.Time) error {
	return invalidTransition(w.ID, s.status, WithdrawalStatusRejected)
}

// GetWithdrawalState returns the state for status. Unknown statuses get a
// state that refuses every transition.
func GetWithdrawalState(status WithdrawalStatus) WithdrawalState {
	if status == WithdrawalStatusPending {
		return &PendingWithdrawalState{}
	}
	return &TerminalWithdrawalState{status: status}
}

func stamp(w *WithdrawalRequest, status WithdrawalStatus, adminID uint, notes string, at time.Time) {
	w.Status = status
	w.ProcessedBy = &adminID
	w.ProcessedAt = &at
	w.AdminNotes = notes
}

func invalidTransition(id uint, from, to WithdrawalStatus) error {
	return apperrors.NewAppError(
		apperrors.ErrCodeInvalidTransition,
		fmt.Sprintf("withdrawal request %d cannot move from %s to %s", id, from, to),
		apperrors.ErrInvalidTransition,
	)
}
