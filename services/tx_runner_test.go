package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "payouts/errors"
	"payouts/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errContention = errors.New("contention")

func TestWithProviderLockRetriesContention(t *testing.T) {
	db := newTestDB(t)
	runner := NewTxRunner(TxRunnerOptions{
		DB:          db,
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return errors.Is(err, errContention) },
	})

	attempts := 0
	err := runner.WithProviderLock(context.Background(), 1, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return errContention
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	var account models.ProviderAccount
	require.NoError(t, db.Take(&account, "provider_id = ?", 1).Error)
}

func TestWithProviderLockSurfacesUnavailable(t *testing.T) {
	db := newTestDB(t)
	runner := NewTxRunner(TxRunnerOptions{
		DB:          db,
		MaxAttempts: 2,
		Retryable:   func(err error) bool { return errors.Is(err, errContention) },
	})

	attempts := 0
	err := runner.WithProviderLock(context.Background(), 1, func(tx *gorm.DB) error {
		attempts++
		return errContention
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.Equal(t, 2, attempts)
}

func TestWithProviderLockDoesNotRetryOtherErrors(t *testing.T) {
	db := newTestDB(t)
	runner := NewTxRunner(TxRunnerOptions{DB: db})

	attempts := 0
	boom := apperrors.Validation(apperrors.ErrCodeValidation, "boom")
	err := runner.WithProviderLock(context.Background(), 1, func(tx *gorm.DB) error {
		attempts++
		return boom
	})
	assert.Same(t, boom, apperrors.GetAppError(err))
	assert.Equal(t, 1, attempts)
}

func TestWithProviderLockRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	runner := NewTxRunner(TxRunnerOptions{DB: db})

	err := runner.WithProviderLock(context.Background(), 2, func(tx *gorm.DB) error {
		if err := tx.Create(&models.WithdrawalRequest{ProviderID: 2, Amount: 10, PaymentMethod: "pix"}).Error; err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.WithdrawalRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithProviderLockRequiresProvider(t *testing.T) {
	runner := NewTxRunner(TxRunnerOptions{DB: newTestDB(t)})
	err := runner.WithProviderLock(context.Background(), 0, func(tx *gorm.DB) error { return nil })
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestIsContentionError(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := fmt.Errorf("commit: %w", &pgconn.PgError{Code: code})
		assert.True(t, IsContentionError(err), code)
	}
	assert.False(t, IsContentionError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsContentionError(errors.New("plain")))
	assert.False(t, IsContentionError(nil))
}

// The SQLite test databases run on one connection, which serializes
// transactions on its own. Render the statements under the PostgreSQL
// dialect to check the account row is really locked before fn runs.
func TestWithProviderLockIssuesRowLock(t *testing.T) {
	sqlDB, err := newTestDB(t).DB()
	require.NoError(t, err)

	pg, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	var statements []string
	record := func(tx *gorm.DB) { statements = append(statements, tx.Statement.SQL.String()) }
	require.NoError(t, pg.Callback().Create().After("gorm:create").Register("test:record_create", record))
	require.NoError(t, pg.Callback().Query().After("gorm:query").Register("test:record_query", record))

	runner := NewTxRunner(TxRunnerOptions{DB: pg})
	err = runner.WithProviderLock(context.Background(), 42, func(tx *gorm.DB) error {
		statements = append(statements, "fn")
		return nil
	})
	require.NoError(t, err)

	require.Len(t, statements, 3)
	assert.Contains(t, statements[0], `INSERT INTO "provider_accounts"`)
	assert.Contains(t, statements[0], "ON CONFLICT DO NOTHING")
	assert.Contains(t, statements[1], `FROM "provider_accounts"`)
	assert.Contains(t, statements[1], "FOR UPDATE")
	assert.Equal(t, "fn", statements[2])
}
