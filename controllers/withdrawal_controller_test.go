package controllers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payouts/constants"
	"payouts/dto"
	"payouts/middleware"
	"payouts/models"
	"payouts/response"
	"payouts/services"
	"payouts/services/audit"
	"payouts/services/events"
	"payouts/services/notification"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	secret     = "controller-test-secret"
	adminID    = uint(1)
	providerA  = uint(10)
	providerB  = uint(11)
	receiptURL = "https://res.cloudinary.com/demo/withdrawal-1.pdf"
)

type stubReceipts struct{}

func (stubReceipts) Upload(_ context.Context, _ uint, _ string, r io.Reader) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return receiptURL, err
}

type apiEnv struct {
	router *gin.Engine
	tokens *services.TokenService
	db     *gorm.DB
}

type envelope struct {
	Code       int                  `json:"code"`
	Mess       string               `json:"mess"`
	ErrorCode  string               `json:"errorCode"`
	Data       json.RawMessage      `json:"data"`
	Pagination *response.Pagination `json:"pagination"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	runner := services.NewTxRunner(services.TxRunnerOptions{DB: db})
	store := services.NewWithdrawalStore(db)
	balance := services.NewBalanceCalculator()
	ledger := services.NewLedgerService(services.LedgerServiceOptions{Runner: runner})
	workflow := services.NewWithdrawalWorkflow(services.WithdrawalWorkflowOptions{
		Runner:    runner,
		Store:     store,
		Balance:   balance,
		Publisher: &events.MemoryPublisher{},
		Auditor:   audit.NewMemoryRecorder(),
		Notifier:  &notification.MemoryService{},
	})
	authority := services.NewSettlementAuthority(services.SettlementAuthorityOptions{
		Workflow: workflow,
		Ledger:   ledger,
		Store:    store,
		Balance:  balance,
		Runner:   runner,
		Receipts: stubReceipts{},
	})

	tokens := services.NewTokenService(secret)
	wc := NewWithdrawalController(authority, nil)

	r := gin.New()
	v1 := r.Group("/api/v1")
	provider := v1.Group("", middleware.AuthMiddleware(tokens, constants.RoleProvider))
	provider.GET("/earnings", wc.GetEarnings)
	provider.GET("/balance", wc.GetBalance)
	provider.GET("/withdrawals", wc.ListOwnWithdrawals)
	provider.POST("/withdrawals", middleware.Idempotency(services.NewMemoryIdempotencyStore(), time.Hour, nil), wc.CreateWithdrawal)
	v1.GET("/withdrawals/:id", middleware.AuthMiddleware(tokens, constants.RoleProvider, constants.RoleAdmin), wc.GetWithdrawal)
	admin := v1.Group("/admin", middleware.AuthMiddleware(tokens, constants.RoleAdmin))
	admin.GET("/withdrawals", wc.ListWithdrawals)
	admin.GET("/withdrawals/pending", wc.ListPendingWithdrawals)
	admin.POST("/withdrawals/:id/resolve", wc.ResolveWithdrawal)
	admin.POST("/withdrawals/:id/receipt", wc.AttachReceipt)
	admin.GET("/providers/:id/balance", wc.GetProviderBalance)
	admin.POST("/order-completed", wc.RecordOrderCompleted)

	return &apiEnv{router: r, tokens: tokens, db: db}
}

func (e *apiEnv) token(t *testing.T, userID uint, role int) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken(userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (e *apiEnv) do(t *testing.T, method, path, auth string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (e *apiEnv) asAdmin(t *testing.T) string {
	return e.token(t, adminID, constants.RoleAdmin)
}

func (e *apiEnv) asProvider(t *testing.T, id uint) string {
	return e.token(t, id, constants.RoleProvider)
}

func (e *apiEnv) completeOrder(t *testing.T, orderID string, providerID uint, total int64, rate string) (int, dto.RecordEarningResponse) {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/v1/admin/order-completed", e.asAdmin(t), dto.OrderCompletedRequest{
		OrderID: orderID, ProviderID: providerID, TotalAmount: total, CommissionRate: rate,
	})
	var out dto.RecordEarningResponse
	if status < 300 {
		require.NoError(t, json.Unmarshal(env.Data, &out))
	}
	return status, out
}

func (e *apiEnv) withdraw(t *testing.T, providerID uint, amount int64, pixKey string) (int, envelope) {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/withdrawals", e.asProvider(t, providerID), dto.CreateWithdrawalRequest{
		Amount:        amount,
		PaymentMethod: constants.PaymentMethodPix,
		PayoutDetails: dto.PayoutDetailsPayload{PixKey: pixKey},
	})
}

func decodeWithdrawal(t *testing.T, env envelope) dto.WithdrawalResponse {
	t.Helper()
	var w dto.WithdrawalResponse
	require.NoError(t, json.Unmarshal(env.Data, &w))
	return w
}

func (e *apiEnv) balance(t *testing.T, providerID uint) dto.BalanceResponse {
	t.Helper()
	status, env := e.do(t, http.MethodGet, "/api/v1/balance", e.asProvider(t, providerID), nil)
	require.Equal(t, http.StatusOK, status)
	var b dto.BalanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &b))
	return b
}

func TestWithdrawalLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t)

	status, rec := e.completeOrder(t, "order-1", providerA, 10000, "0.10")
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, rec.Created)
	assert.Equal(t, int64(1000), rec.Earning.CommissionAmount)
	assert.Equal(t, int64(9000), rec.Earning.ProviderAmount)

	status, rec = e.completeOrder(t, "order-1", providerA, 10000, "0.10")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, rec.Created)

	assert.Equal(t, int64(9000), e.balance(t, providerA).AvailableBalance)

	status, env := e.withdraw(t, providerA, 9000, "provider-a@example.com")
	require.Equal(t, http.StatusCreated, status, env.Mess)
	created := decodeWithdrawal(t, env)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, providerA, created.ProviderID)

	b := e.balance(t, providerA)
	assert.Equal(t, int64(9000), b.AvailableBalance)
	assert.Equal(t, int64(0), b.WithdrawableBalance)

	path := fmt.Sprintf("/api/v1/admin/withdrawals/%d/resolve", created.ID)
	status, env = e.do(t, http.MethodPost, path, e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "approved"})
	require.Equal(t, http.StatusOK, status, env.Mess)
	resolved := decodeWithdrawal(t, env)
	assert.Equal(t, "approved", resolved.Status)
	require.NotNil(t, resolved.ProcessedBy)
	assert.Equal(t, adminID, *resolved.ProcessedBy)

	status, env = e.do(t, http.MethodPost, path, e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "rejected", Notes: "again"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", env.ErrorCode)

	b = e.balance(t, providerA)
	assert.Equal(t, int64(9000), b.WithdrawnAmount)
	assert.Equal(t, int64(0), b.AvailableBalance)

	status, env = e.do(t, http.MethodGet, "/api/v1/earnings", e.asProvider(t, providerA), nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)
}

func TestCreateWithdrawal_InsufficientBalance(t *testing.T) {
	e := newAPIEnv(t)
	e.completeOrder(t, "order-1", providerA, 5000, "0")

	status, env := e.withdraw(t, providerA, 6000, "key")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_FUND", env.ErrorCode)
}

func TestCreateWithdrawal_BadBody(t *testing.T) {
	e := newAPIEnv(t)

	status, _ := e.do(t, http.MethodPost, "/api/v1/withdrawals", e.asProvider(t, providerA), map[string]interface{}{
		"amount": 100, "paymentMethod": "cheque",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := e.withdraw(t, providerA, 100, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, env.Mess)
}

func TestCreateWithdrawal_IdempotencyKey(t *testing.T) {
	e := newAPIEnv(t)
	e.completeOrder(t, "order-1", providerA, 5000, "0")
	e.completeOrder(t, "order-2", providerA, 5000, "0")

	body := dto.CreateWithdrawalRequest{
		Amount:        5000,
		PaymentMethod: constants.PaymentMethodPix,
		PayoutDetails: dto.PayoutDetailsPayload{PixKey: "key"},
	}
	s1, first := e.do(t, http.MethodPost, "/api/v1/withdrawals", e.asProvider(t, providerA), body, "Idempotency-Key", "k-1")
	s2, second := e.do(t, http.MethodPost, "/api/v1/withdrawals", e.asProvider(t, providerA), body, "Idempotency-Key", "k-1")

	require.Equal(t, http.StatusCreated, s1)
	require.Equal(t, http.StatusCreated, s2)
	assert.Equal(t, decodeWithdrawal(t, first).ID, decodeWithdrawal(t, second).ID)

	var count int64
	require.NoError(t, e.db.Model(&models.WithdrawalRequest{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(5000), e.balance(t, providerA).WithdrawableBalance)
}

func TestAuthorization(t *testing.T) {
	e := newAPIEnv(t)
	e.completeOrder(t, "order-1", providerA, 5000, "0")
	_, env := e.withdraw(t, providerA, 5000, "key")
	id := decodeWithdrawal(t, env).ID

	status, _ := e.do(t, http.MethodGet, "/api/v1/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.do(t, http.MethodGet, "/api/v1/admin/withdrawals", e.asProvider(t, providerA), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodPost, "/api/v1/withdrawals", e.asAdmin(t), dto.CreateWithdrawalRequest{})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/withdrawals/%d", id), e.asProvider(t, providerB), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/withdrawals/%d", id), e.asProvider(t, providerA), nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/withdrawals/%d", id), e.asAdmin(t), nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = e.do(t, http.MethodGet, "/api/v1/withdrawals/999", e.asAdmin(t), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DB_NOT_FOUND", env.ErrorCode)

	status, _ = e.do(t, http.MethodGet, "/api/v1/withdrawals/abc", e.asAdmin(t), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestResolve_RejectionNeedsNotes(t *testing.T) {
	e := newAPIEnv(t)
	e.completeOrder(t, "order-1", providerA, 5000, "0")
	_, env := e.withdraw(t, providerA, 5000, "key")
	path := fmt.Sprintf("/api/v1/admin/withdrawals/%d/resolve", decodeWithdrawal(t, env).ID)

	status, _ := e.do(t, http.MethodPost, path, e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "rejected"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, path, e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = e.do(t, http.MethodPost, path, e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "rejected", Notes: "bank data mismatch"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bank data mismatch", decodeWithdrawal(t, env).AdminNotes)

	b := e.balance(t, providerA)
	assert.Equal(t, int64(5000), b.AvailableBalance)
	assert.Equal(t, int64(5000), b.WithdrawableBalance)
}

func TestListWithdrawals_FiltersAndPending(t *testing.T) {
	e := newAPIEnv(t)
	e.completeOrder(t, "order-a", providerA, 3000, "0")
	e.completeOrder(t, "order-b", providerB, 4000, "0")
	_, envA := e.withdraw(t, providerA, 3000, "João.Silva@example.com")
	_, envB := e.withdraw(t, providerB, 4000, "maria@example.com")
	idA := decodeWithdrawal(t, envA).ID
	idB := decodeWithdrawal(t, envB).ID

	status, env := e.do(t, http.MethodGet, "/api/v1/admin/withdrawals?name=JOAO", e.asAdmin(t), nil)
	require.Equal(t, http.StatusOK, status)
	var list []dto.WithdrawalResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, idA, list[0].ID)
	assert.Equal(t, 1, env.Pagination.Total)

	status, env = e.do(t, http.MethodGet, "/api/v1/admin/withdrawals", e.asAdmin(t), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, idB, list[0].ID, "newest first")

	e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/withdrawals/%d/resolve", idA), e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "approved"})

	status, env = e.do(t, http.MethodGet, "/api/v1/admin/withdrawals?status=approved", e.asAdmin(t), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, idA, list[0].ID)

	status, env = e.do(t, http.MethodGet, "/api/v1/admin/withdrawals/pending", e.asAdmin(t), nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, idB, list[0].ID)

	status, env = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/providers/%d/balance", providerB), e.asAdmin(t), nil)
	require.Equal(t, http.StatusOK, status)
	var b dto.BalanceResponse
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, int64(4000), b.ReservedAmount)

	status, _ = e.do(t, http.MethodGet, "/api/v1/admin/withdrawals?status=unknown", e.asAdmin(t), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListing_RejectsPagesPastBound(t *testing.T) {
	e := newAPIEnv(t)
	for _, path := range []string{
		"/api/v1/admin/withdrawals?page=100001",
		"/api/v1/admin/withdrawals?name=joao&page=9223372036854775807",
	} {
		status, _ := e.do(t, http.MethodGet, path, e.asAdmin(t), nil)
		assert.Equal(t, http.StatusBadRequest, status, path)
	}

	status, _ := e.do(t, http.MethodGet, "/api/v1/earnings?page=100001", e.asProvider(t, providerA), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = e.do(t, http.MethodGet, "/api/v1/earnings?page=100000", e.asProvider(t, providerA), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAttachReceipt(t *testing.T) {
	e := newAPIEnv(t)
	e.completeOrder(t, "order-1", providerA, 5000, "0")
	_, env := e.withdraw(t, providerA, 5000, "key")
	id := decodeWithdrawal(t, env).ID

	upload := func() (int, envelope) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "receipt.pdf")
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF-1.4 receipt"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/admin/withdrawals/%d/receipt", id), &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", e.asAdmin(t))
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		var out envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return w.Code, out
	}

	status, _ := upload()
	assert.Equal(t, http.StatusConflict, status, "pending requests take no receipt")

	e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/withdrawals/%d/resolve", id), e.asAdmin(t), dto.ResolveWithdrawalRequest{Decision: "approved"})

	status, env = upload()
	require.Equal(t, http.StatusOK, status, env.Mess)
	assert.Equal(t, receiptURL, decodeWithdrawal(t, env).ReceiptURL)
}

func TestRecordOrderCompleted_Validation(t *testing.T) {
	e := newAPIEnv(t)

	status, _ := e.completeOrder(t, "order-1", providerA, 5000, "abc")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.completeOrder(t, "order-1", providerA, 5000, "1.5")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/api/v1/admin/order-completed", e.asProvider(t, providerA), dto.OrderCompletedRequest{
		OrderID: "x", ProviderID: providerA, TotalAmount: 1, CommissionRate: "0",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "joaosilva", searchKey("João Silva"))
	assert.Equal(t, "aeiou", searchKey("ÁÉÍÕÜ"))
}
