package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "payouts/errors"
	"payouts/models"
	"payouts/services/logger"
	"payouts/services/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultTxMaxAttempts = 3
	DefaultTxBackoff     = 20 * time.Millisecond
)

// PostgreSQL error codes raised by lock or serialization contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// TxRunner runs provider-scoped units of work. Each unit takes a row lock on the
// provider's account before running, so check-then-act sequences for the same
// provider never interleave.
type TxRunner struct {
	db          *gorm.DB
	logger      logger.Logger
	maxAttempts int
	backoff     time.Duration
	retryable   func(error) bool
}

type TxRunnerOptions struct {
	DB          *gorm.DB
	Logger      logger.Logger
	MaxAttempts int
	Backoff     time.Duration
	// Retryable overrides the contention classifier. Defaults to IsContentionError.
	Retryable func(error) bool
}

func NewTxRunner(opts TxRunnerOptions) *TxRunner {
	r := &TxRunner{
		db:          opts.DB,
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		retryable:   opts.Retryable,
	}
	if r.logger == nil {
		r.logger = logger.NewNopLogger()
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = DefaultTxMaxAttempts
	}
	if r.backoff <= 0 {
		r.backoff = DefaultTxBackoff
	}
	if r.retryable == nil {
		r.retryable = IsContentionError
	}
	return r
}

// DB returns the handle used for reads outside a provider lock.
func (r *TxRunner) DB() *gorm.DB {
	return r.db
}

// WithProviderLock runs fn in a transaction that holds the provider's account
// row lock. Contention failures are retried; once attempts run out the caller
// gets ErrUnavailable. A cancelled context rolls the transaction back.
func (r *TxRunner) WithProviderLock(ctx context.Context, providerID uint, fn func(tx *gorm.DB) error) error {
	if providerID == 0 {
		return apperrors.Validation(apperrors.ErrCodeInvalidProviderID, "provider id is required")
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockProvider(tx, providerID); err != nil {
				return err
			}
			return fn(tx)
		})
		if err == nil {
			return nil
		}
		if !r.retryable(err) {
			return err
		}

		lastErr = err
		metrics.LockRetries.Inc()
		r.logger.Warn("provider %d: contention on attempt %d/%d: %v", providerID, attempt, r.maxAttempts, err)
		if attempt == r.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}

	return apperrors.NewAppError(
		apperrors.ErrCodeUnavailable,
		"the provider's balance is busy, please retry",
		fmt.Errorf("%w: %v", apperrors.ErrUnavailable, lastErr),
	)
}

func lockProvider(tx *gorm.DB, providerID uint) error {
	account := models.ProviderAccount{ProviderID: providerID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account).Error; err != nil {
		return err
	}

	var locked models.ProviderAccount
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider_id = ?", providerID).
		Take(&locked).Error
}

// IsContentionError reports whether err came from lock or serialization
// contention in PostgreSQL.
func IsContentionError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return true
	}
	return false
}
