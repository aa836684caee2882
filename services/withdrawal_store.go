package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "payouts/errors"
	"payouts/models"

	"gorm.io/gorm"
)

// WithdrawalFilter narrows the admin listing.
type WithdrawalFilter struct {
	ProviderID uint
	Status     models.WithdrawalStatus
	Page       int
	Limit      int
}

// WithdrawalStore persists withdrawal requests and their earning reservations.
type WithdrawalStore struct {
	db *gorm.DB
}

func NewWithdrawalStore(db *gorm.DB) *WithdrawalStore {
	return &WithdrawalStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *WithdrawalStore) WithTx(tx *gorm.DB) *WithdrawalStore {
	return &WithdrawalStore{db: tx}
}

// Create inserts req as pending. Caller-set status and resolution fields are discarded.
func (s *WithdrawalStore) Create(ctx context.Context, req *models.WithdrawalRequest) error {
	if req.Amount <= 0 {
		return apperrors.Validation(apperrors.ErrCodeInvalidAmount, "amount must be greater than zero")
	}
	req.ID = 0
	req.Status = models.WithdrawalStatusPending
	req.ProcessedBy = nil
	req.ProcessedAt = nil
	req.AdminNotes = ""
	req.ReceiptURL = ""
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *WithdrawalStore) Get(ctx context.Context, id uint) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := s.db.WithContext(ctx).Take(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("withdrawal request %d not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListForProvider returns one page of the provider's requests, newest first.
func (s *WithdrawalStore) ListForProvider(ctx context.Context, providerID uint, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	return s.List(ctx, WithdrawalFilter{ProviderID: providerID, Page: page, Limit: limit})
}

// ListPending returns the admin queue, oldest first.
func (s *WithdrawalStore) ListPending(ctx context.Context) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := s.db.WithContext(ctx).
		Where("status = ?", string(models.WithdrawalStatusPending)).
		Order("created_at ASC").Order("id ASC").
		Find(&reqs).Error
	return reqs, err
}

// List returns requests matching filter, newest first. A zero Limit returns every match.
func (s *WithdrawalStore) List(ctx context.Context, filter WithdrawalFilter) ([]models.WithdrawalRequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if filter.ProviderID != 0 {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, 0, apperrors.Validation(apperrors.ErrCodeInvalidStatus, fmt.Sprintf("unknown withdrawal status %q", filter.Status))
		}
		query = query.Where("status = ?", string(filter.Status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		page = page.Offset(filter.Page * filter.Limit).Limit(filter.Limit)
	}

	var reqs []models.WithdrawalRequest
	if err := page.Find(&reqs).Error; err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// TransitionStatus moves a pending request to approved or rejected and stamps
// who resolved it and when. The update only matches a row that is still
// pending, so two racing resolutions cannot both succeed.
func (s *WithdrawalStore) TransitionStatus(ctx context.Context, id uint, newStatus models.WithdrawalStatus, adminID uint, adminNotes string) (*models.WithdrawalRequest, error) {
	if !newStatus.Terminal() {
		return nil, apperrors.NewAppError(
			apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot transition to %q", newStatus),
			apperrors.ErrInvalidTransition,
		)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state := models.GetWithdrawalState(current.Status)
	if newStatus == models.WithdrawalStatusApproved {
		err = state.Approve(current, adminID, adminNotes, now)
	} else {
		err = state.Reject(current, adminID, adminNotes, now)
	}
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, string(models.WithdrawalStatusPending)).
		Updates(map[string]interface{}{
			"status":       string(current.Status),
			"processed_by": adminID,
			"processed_at": now,
			"admin_notes":  adminNotes,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewAppError(
			apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("withdrawal request %d was resolved concurrently", id),
			apperrors.ErrInvalidTransition,
		)
	}

	return s.Get(ctx, id)
}

// Reserve attaches earnings to a pending request. An earning can be reserved once.
func (s *WithdrawalStore) Reserve(ctx context.Context, requestID uint, earningIDs []uint) error {
	if len(earningIDs) == 0 {
		return nil
	}
	reservations := make([]models.WithdrawalReservation, 0, len(earningIDs))
	for _, id := range earningIDs {
		reservations = append(reservations, models.WithdrawalReservation{
			WithdrawalRequestID: requestID,
			EarningID:           id,
		})
	}
	return s.db.WithContext(ctx).Create(&reservations).Error
}

// ReservedEarnings returns the earnings reserved for a request, oldest first.
func (s *WithdrawalStore) ReservedEarnings(ctx context.Context, requestID uint) ([]models.Earning, error) {
	var earnings []models.Earning
	err := s.db.WithContext(ctx).
		Joins("JOIN withdrawal_reservations r ON r.earning_id = earnings.id").
		Where("r.withdrawal_request_id = ?", requestID).
		Order("earnings.created_at ASC").Order("earnings.id ASC").
		Find(&earnings).Error
	return earnings, err
}

// ReleaseReservations frees the earnings of a request so later requests can use them.
func (s *WithdrawalStore) ReleaseReservations(ctx context.Context, requestID uint) error {
	return s.db.WithContext(ctx).
		Where("withdrawal_request_id = ?", requestID).
		Delete(&models.WithdrawalReservation{}).Error
}

// UnreservedEarnings returns the provider's non-withdrawn earnings not held by
// any request, oldest first.
func (s *WithdrawalStore) UnreservedEarnings(ctx context.Context, providerID uint) ([]models.Earning, error) {
	var earnings []models.Earning
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND is_withdrawn = ?", providerID, false).
		Where("id NOT IN (?)", s.db.Model(&models.WithdrawalReservation{}).Select("earning_id")).
		Order("created_at ASC").Order("id ASC").
		Find(&earnings).Error
	return earnings, err
}

// SetReceiptURL records the payout proof of an approved request.
func (s *WithdrawalStore) SetReceiptURL(ctx context.Context, id uint, url string) (*models.WithdrawalRequest, error) {
	res := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, string(models.WithdrawalStatusApproved)).
		Update("receipt_url", url)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.NewAppError(
			apperrors.ErrCodeInvalidTransition,
			fmt.Sprintf("withdrawal request %d is %s; receipts can only be attached to approved requests", id, current.Status),
			apperrors.ErrInvalidTransition,
		)
	}
	return s.Get(ctx, id)
}
