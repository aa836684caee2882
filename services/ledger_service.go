package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "payouts/errors"
	"payouts/models"
	"payouts/services/audit"
	"payouts/services/logger"
	"payouts/services/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordEarningInput struct {
	SourceOrderID  string
	ProviderID     uint
	TotalAmount    int64
	CommissionRate decimal.Decimal
}

// EarningFilter narrows ListEarnings. Zero values mean no restriction.
type EarningFilter struct {
	OnlyAvailable bool
	From          *time.Time
	To            *time.Time
}

// LedgerService is the only writer of earnings.
type LedgerService struct {
	runner  *TxRunner
	logger  logger.Logger
	auditor audit.Recorder
}

type LedgerServiceOptions struct {
	Runner  *TxRunner
	Logger  logger.Logger
	Auditor audit.Recorder
}

func NewLedgerService(opts LedgerServiceOptions) *LedgerService {
	s := &LedgerService{
		runner:  opts.Runner,
		logger:  opts.Logger,
		auditor: opts.Auditor,
	}
	if s.logger == nil {
		s.logger = logger.NewNopLogger()
	}
	return s
}

func validateEarningInput(in RecordEarningInput) error {
	if strings.TrimSpace(in.SourceOrderID) == "" {
		return apperrors.Validation(apperrors.ErrCodeInvalidOrderID, "source order id is required")
	}
	if in.ProviderID == 0 {
		return apperrors.Validation(apperrors.ErrCodeInvalidProviderID, "provider id is required")
	}
	if in.TotalAmount <= 0 {
		return apperrors.Validation(apperrors.ErrCodeInvalidAmount, "total amount must be greater than zero")
	}
	if !models.ValidCommissionRate(in.CommissionRate) {
		return apperrors.Validation(apperrors.ErrCodeInvalidRate, "commission rate must be between 0 and 1 with at most 4 decimal places")
	}
	return nil
}

// RecordEarning stores the provider's share of a completed order. A second call
// for the same source order returns the stored earning with created=false.
func (s *LedgerService) RecordEarning(ctx context.Context, in RecordEarningInput) (*models.Earning, bool, error) {
	in.SourceOrderID = strings.TrimSpace(in.SourceOrderID)
	if err := validateEarningInput(in); err != nil {
		metrics.EarningsRecorded.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, false, err
	}

	existing, err := s.findBySourceOrder(s.runner.DB().WithContext(ctx), in.SourceOrderID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		s.reportDuplicate(existing, in)
		return existing, false, nil
	}

	commission, providerAmount := models.SplitCommission(in.TotalAmount, in.CommissionRate)

	var earning *models.Earning
	created := false
	err = s.runner.WithProviderLock(ctx, in.ProviderID, func(tx *gorm.DB) error {
		candidate := &models.Earning{
			ProviderID:       in.ProviderID,
			SourceOrderID:    in.SourceOrderID,
			TotalAmount:      in.TotalAmount,
			CommissionRate:   in.CommissionRate,
			CommissionAmount: commission,
			ProviderAmount:   providerAmount,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_order_id"}},
			DoNothing: true,
		}).Create(candidate)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			earning, created = candidate, true
			return nil
		}

		stored, err := s.findBySourceOrder(tx, in.SourceOrderID)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("earning for order %s vanished after conflict", in.SourceOrderID)
		}
		earning, created = stored, false
		return nil
	})
	if err != nil {
		metrics.EarningsRecorded.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("failed to record earning for order %s: %v", in.SourceOrderID, err)
		return nil, false, err
	}

	if !created {
		s.reportDuplicate(earning, in)
		return earning, false, nil
	}

	metrics.EarningsRecorded.WithLabelValues(metrics.OutcomeCreated).Inc()
	s.logger.Info("earning %d recorded for provider %d: order=%s total=%d commission=%d provider=%d",
		earning.ID, earning.ProviderID, earning.SourceOrderID, earning.TotalAmount, earning.CommissionAmount, earning.ProviderAmount)
	s.audit(ctx, audit.Entry{
		Action:     audit.ActionEarningRecorded,
		ProviderID: earning.ProviderID,
		EarningID:  earning.ID,
		Amount:     earning.ProviderAmount,
		Notes:      "order " + earning.SourceOrderID,
	})
	return earning, true, nil
}

func (s *LedgerService) reportDuplicate(existing *models.Earning, in RecordEarningInput) {
	metrics.EarningsRecorded.WithLabelValues(metrics.OutcomeDuplicate).Inc()
	if existing.ProviderID != in.ProviderID || existing.TotalAmount != in.TotalAmount {
		s.logger.Warn("order %s redelivered with different data (provider %d/%d, total %d/%d); keeping the stored earning",
			in.SourceOrderID, existing.ProviderID, in.ProviderID, existing.TotalAmount, in.TotalAmount)
		return
	}
	s.logger.Debug("order %s already recorded as earning %d", in.SourceOrderID, existing.ID)
}

func (s *LedgerService) findBySourceOrder(db *gorm.DB, sourceOrderID string) (*models.Earning, error) {
	var earning models.Earning
	err := db.Where("source_order_id = ?", sourceOrderID).Take(&earning).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &earning, nil
}

// ListEarnings returns the provider's earnings oldest first, the order in which
// withdrawals consume them.
func (s *LedgerService) ListEarnings(ctx context.Context, providerID uint, filter EarningFilter) ([]models.Earning, error) {
	query := s.runner.DB().WithContext(ctx).Where("provider_id = ?", providerID)
	if filter.OnlyAvailable {
		query = query.Where("is_withdrawn = ?", false)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var earnings []models.Earning
	if err := query.Order("created_at ASC").Order("id ASC").Find(&earnings).Error; err != nil {
		return nil, err
	}
	return earnings, nil
}

// ListEarningsPage returns one page of the provider's earnings, newest first.
func (s *LedgerService) ListEarningsPage(ctx context.Context, providerID uint, page, limit int) ([]models.Earning, int64, error) {
	query := s.runner.DB().WithContext(ctx).Model(&models.Earning{}).
		Where("provider_id = ?", providerID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var earnings []models.Earning
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(page * limit).Limit(limit).
		Find(&earnings).Error
	if err != nil {
		return nil, 0, err
	}
	return earnings, total, nil
}

func (s *LedgerService) audit(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		metrics.SideEffectFailures.WithLabelValues("audit").Inc()
		s.logger.Error("failed to write audit entry %s: %v", entry.Action, err)
	}
}
