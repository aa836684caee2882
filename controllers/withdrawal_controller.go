package controllers

import (
	"strconv"
	"strings"

	"payouts/builders"
	"payouts/commands"
	"payouts/dto"
	apperrors "payouts/errors"
	"payouts/middleware"
	"payouts/models"
	"payouts/response"
	"payouts/services"
	"payouts/services/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxReceiptSize = 10 << 20

type WithdrawalController struct {
	authority *services.SettlementAuthority
	logger    logger.Logger
}

func NewWithdrawalController(authority *services.SettlementAuthority, log logger.Logger) *WithdrawalController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &WithdrawalController{authority: authority, logger: log}
}

func principal(c *gin.Context) (services.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c)
	}
	return p, ok
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// GetEarnings godoc
// @Summary      List own earnings
// @Description  Earnings of the calling provider, newest first
// @Tags         provider
// @Produce      json
// @Param        page   query  int  false  "Page, starting at 0"
// @Param        limit  query  int  false  "Page size (max 100)"
// @Success      200  {object}  dto.EarningPage
// @Failure      401  {object}  response.Response
// @Security     BearerAuth
// @Router       /earnings [get]
func (w *WithdrawalController) GetEarnings(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	earnings, total, err := w.authority.Earnings(c.Request.Context(), p, q.Page, q.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPagination(c, dto.ToEarningResponses(earnings), q.Page, q.Limit, int(total))
}

// GetBalance godoc
// @Summary      Own balance
// @Tags         provider
// @Produce      json
// @Success      200  {object}  dto.BalanceResponse
// @Security     BearerAuth
// @Router       /balance [get]
func (w *WithdrawalController) GetBalance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	summary, err := w.authority.Balance(c.Request.Context(), p, p.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, dto.ToBalanceResponse(summary))
}

// CreateWithdrawal godoc
// @Summary      Request a withdrawal
// @Description  Reserves the oldest earnings that add up to the amount. Honours Idempotency-Key.
// @Tags         provider
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                       false  "Replay key"
// @Param        body             body    dto.CreateWithdrawalRequest  true   "Withdrawal"
// @Success      201  {object}  dto.WithdrawalResponse
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Security     BearerAuth
// @Router       /withdrawals [post]
func (w *WithdrawalController) CreateWithdrawal(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var input dto.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	in := builders.NewWithdrawalInputBuilder().
		ForProvider(p.UserID).
		WithAmount(input.Amount).
		WithMethod(input.PaymentMethod, input.PayoutDetails.ToModel()).
		WithNotes(input.Notes).
		Build()

	req, err := w.authority.CreateRequest(c.Request.Context(), p, in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, dto.ToWithdrawalResponse(*req))
}

// ListOwnWithdrawals godoc
// @Summary      List own withdrawals
// @Tags         provider
// @Produce      json
// @Param        page   query  int  false  "Page, starting at 0"
// @Param        limit  query  int  false  "Page size (max 100)"
// @Success      200  {object}  dto.WithdrawalPage
// @Security     BearerAuth
// @Router       /withdrawals [get]
func (w *WithdrawalController) ListOwnWithdrawals(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reqs, total, err := w.authority.ListOwn(c.Request.Context(), p, q.Page, q.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithPagination(c, dto.ToWithdrawalResponses(reqs), q.Page, q.Limit, int(total))
}

// GetWithdrawal godoc
// @Summary      Get one withdrawal
// @Tags         provider
// @Produce      json
// @Param        id  path  int  true  "Withdrawal ID"
// @Success      200  {object}  dto.WithdrawalResponse
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Security     BearerAuth
// @Router       /withdrawals/{id} [get]
func (w *WithdrawalController) GetWithdrawal(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	req, err := w.authority.GetOwn(c.Request.Context(), p, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, dto.ToWithdrawalResponse(*req))
}

// ListWithdrawals godoc
// @Summary      Admin withdrawal listing
// @Description  Newest first. name matches the account holder or PIX key, ignoring case and accents.
// @Tags         admin
// @Produce      json
// @Param        status      query  string  false  "pending, approved or rejected"
// @Param        name        query  string  false  "Holder name or PIX key"
// @Param        providerId  query  int     false  "Provider"
// @Param        page        query  int     false  "Page, starting at 0"
// @Param        limit       query  int     false  "Page size (max 100)"
// @Success      200  {object}  dto.WithdrawalPage
// @Security     BearerAuth
// @Router       /admin/withdrawals [get]
func (w *WithdrawalController) ListWithdrawals(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var q dto.WithdrawalFilter
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	filter := services.WithdrawalFilter{
		ProviderID: q.ProviderID,
		Status:     models.WithdrawalStatus(q.Status),
		Page:       q.Page,
		Limit:      q.Limit,
	}
	name := strings.TrimSpace(q.Name)
	if name != "" {
		filter.Page, filter.Limit = 0, 0
	}

	reqs, total, err := w.authority.ListAll(c.Request.Context(), p, filter)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if name != "" {
		reqs = filterByHolder(reqs, name)
		total = int64(len(reqs))
		reqs = paginate(reqs, q.Page, q.Limit)
	}
	response.SuccessWithPagination(c, dto.ToWithdrawalResponses(reqs), q.Page, q.Limit, int(total))
}

func filterByHolder(reqs []models.WithdrawalRequest, name string) []models.WithdrawalRequest {
	needle := searchKey(name)
	filtered := make([]models.WithdrawalRequest, 0, len(reqs))
	for _, r := range reqs {
		if strings.Contains(searchKey(r.PayoutDetails.AccountHolder), needle) ||
			strings.Contains(searchKey(r.PayoutDetails.PixKey), needle) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func paginate(reqs []models.WithdrawalRequest, page, limit int) []models.WithdrawalRequest {
	start := page * limit
	if start >= len(reqs) {
		return []models.WithdrawalRequest{}
	}
	end := start + limit
	if end > len(reqs) {
		end = len(reqs)
	}
	return reqs[start:end]
}

// ListPendingWithdrawals godoc
// @Summary      Pending queue
// @Description  Pending requests, oldest first
// @Tags         admin
// @Produce      json
// @Success      200  {array}  dto.WithdrawalResponse
// @Security     BearerAuth
// @Router       /admin/withdrawals/pending [get]
func (w *WithdrawalController) ListPendingWithdrawals(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	reqs, err := w.authority.ListPending(c.Request.Context(), p)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, dto.ToWithdrawalResponses(reqs))
}

// ResolveWithdrawal godoc
// @Summary      Approve or reject
// @Description  Rejection requires notes
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path  int                           true  "Withdrawal ID"
// @Param        body  body  dto.ResolveWithdrawalRequest  true  "Decision"
// @Success      200  {object}  dto.WithdrawalResponse
// @Failure      409  {object}  response.Response
// @Security     BearerAuth
// @Router       /admin/withdrawals/{id}/resolve [post]
func (w *WithdrawalController) ResolveWithdrawal(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input dto.ResolveWithdrawalRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cmd, err := commands.ForDecision(w.authority, p, id, input.Decision, input.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	req, err := cmd.Execute(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, dto.ToWithdrawalResponse(*req))
}

// AttachReceipt godoc
// @Summary      Upload payout proof
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      int   true  "Withdrawal ID"
// @Param        file  formData  file  true  "Receipt"
// @Success      200  {object}  dto.WithdrawalResponse
// @Failure      409  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Security     BearerAuth
// @Router       /admin/withdrawals/{id}/receipt [post]
func (w *WithdrawalController) AttachReceipt(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxReceiptSize {
		response.BadRequest(c, "receipt must be at most 10MB")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "could not read file")
		return
	}
	defer file.Close()

	req, err := w.authority.AttachReceipt(c.Request.Context(), p, id, fileHeader.Filename, file)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, dto.ToWithdrawalResponse(*req))
}

// GetProviderBalance godoc
// @Summary      Provider balance
// @Tags         admin
// @Produce      json
// @Param        id  path  int  true  "Provider ID"
// @Success      200  {object}  dto.BalanceResponse
// @Security     BearerAuth
// @Router       /admin/providers/{id}/balance [get]
func (w *WithdrawalController) GetProviderBalance(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	providerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	summary, err := w.authority.Balance(c.Request.Context(), p, providerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, dto.ToBalanceResponse(summary))
}

// RecordOrderCompleted godoc
// @Summary      Ingest order.completed
// @Description  Same effect as the queue consumer. A repeated orderId returns the stored earning with created=false.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderCompletedRequest  true  "Event"
// @Success      200  {object}  dto.RecordEarningResponse
// @Success      201  {object}  dto.RecordEarningResponse
// @Security     BearerAuth
// @Router       /admin/order-completed [post]
func (w *WithdrawalController) RecordOrderCompleted(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var input dto.OrderCompletedRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(input.CommissionRate))
	if err != nil {
		response.FromError(c, apperrors.Validation(apperrors.ErrCodeInvalidRate, "commissionRate must be a decimal such as 0.15"))
		return
	}

	earning, created, err := w.authority.RecordEarning(c.Request.Context(), p, services.RecordEarningInput{
		SourceOrderID:  input.OrderID,
		ProviderID:     input.ProviderID,
		TotalAmount:    input.TotalAmount,
		CommissionRate: rate,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	body := dto.RecordEarningResponse{Created: created, Earning: dto.ToEarningResponse(*earning)}
	if created {
		response.Created(c, body)
		return
	}
	w.logger.Info("order %s was already recorded as earning %d", input.OrderID, earning.ID)
	response.Success(c, body)
}
