package services

import (
	"context"
	"fmt"
	"io"
	"testing"

	"payouts/constants"
	"payouts/models"
	"payouts/services/audit"
	"payouts/services/events"
	"payouts/services/logger"
	"payouts/services/notification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	runner    *TxRunner
	ledger    *LedgerService
	store     *WithdrawalStore
	balance   *BalanceCalculator
	workflow  *WithdrawalWorkflow
	authority *SettlementAuthority
	publisher *events.MemoryPublisher
	auditor   *audit.MemoryRecorder
	notifier  *notification.MemoryService
	receipts  *fakeReceipts
	log       *logger.RecordingLogger
}

// newTestDB opens a private in-memory SQLite database. A single connection
// serializes transactions the way the provider row lock does in PostgreSQL.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:        db,
		publisher: &events.MemoryPublisher{},
		auditor:   audit.NewMemoryRecorder(),
		notifier:  &notification.MemoryService{},
		receipts:  &fakeReceipts{url: "https://res.cloudinary.com/demo/receipt.pdf"},
		log:       &logger.RecordingLogger{},
		balance:   NewBalanceCalculator(),
		store:     NewWithdrawalStore(db),
	}
	env.runner = NewTxRunner(TxRunnerOptions{DB: db, Logger: env.log})
	env.ledger = NewLedgerService(LedgerServiceOptions{Runner: env.runner, Logger: env.log, Auditor: env.auditor})
	env.workflow = NewWithdrawalWorkflow(WithdrawalWorkflowOptions{
		Runner:    env.runner,
		Store:     env.store,
		Balance:   env.balance,
		Logger:    env.log,
		Publisher: env.publisher,
		Auditor:   env.auditor,
		Notifier:  env.notifier,
	})
	env.authority = NewSettlementAuthority(SettlementAuthorityOptions{
		Workflow: env.workflow,
		Ledger:   env.ledger,
		Store:    env.store,
		Balance:  env.balance,
		Runner:   env.runner,
		Receipts: env.receipts,
		Auditor:  env.auditor,
		Logger:   env.log,
	})
	return env
}

// earn records an earning with no commission so providerAmount equals amount.
func (e *testEnv) earn(t *testing.T, providerID uint, amount int64) *models.Earning {
	t.Helper()
	earning, created, err := e.ledger.RecordEarning(context.Background(), RecordEarningInput{
		SourceOrderID:  uuid.NewString(),
		ProviderID:     providerID,
		TotalAmount:    amount,
		CommissionRate: decimal.Zero,
	})
	require.NoError(t, err)
	require.True(t, created)
	return earning
}

func (e *testEnv) summary(t *testing.T, providerID uint) BalanceSummary {
	t.Helper()
	s, err := e.balance.Summary(e.db, providerID)
	require.NoError(t, err)
	return s
}

func pixInput(providerID uint, amount int64) CreateWithdrawalInput {
	return CreateWithdrawalInput{
		ProviderID:    providerID,
		Amount:        amount,
		PaymentMethod: constants.PaymentMethodPix,
		PayoutDetails: models.PayoutDetails{PixKey: "provider@example.com"},
	}
}

type fakeReceipts struct {
	url   string
	err   error
	calls int
}

func (f *fakeReceipts) Upload(_ context.Context, _ uint, _ string, _ io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}
