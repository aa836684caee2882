package dto

import (
	"time"

	"payouts/models"
)

type PayoutDetailsPayload struct {
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountHolder string `json:"accountHolder,omitempty"`
	TaxID         string `json:"taxId,omitempty"`
	PixKey        string `json:"pixKey,omitempty"`
}

// CreateWithdrawalRequest is the body of POST /withdrawals. Amount is in cents.
type CreateWithdrawalRequest struct {
	Amount        int64                `json:"amount" binding:"required,min=1"`
	PaymentMethod string               `json:"paymentMethod" binding:"required,oneof=bank_transfer pix"`
	PayoutDetails PayoutDetailsPayload `json:"payoutDetails"`
	Notes         string               `json:"notes" binding:"max=500"`
}

// ResolveWithdrawalRequest is the body of POST /admin/withdrawals/:id/resolve.
type ResolveWithdrawalRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Notes    string `json:"notes" binding:"max=500"`
}

// WithdrawalFilter is bound from the admin listing query string.
type WithdrawalFilter struct {
	Status     string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Name       string `form:"name"`
	ProviderID uint   `form:"providerId"`
	Page       int    `form:"page,default=0" binding:"min=0,max=100000"`
	Limit      int    `form:"limit,default=10" binding:"min=1,max=100"`
}

type WithdrawalResponse struct {
	ID            uint                 `json:"id"`
	ProviderID    uint                 `json:"providerId"`
	Amount        int64                `json:"amount"`
	PaymentMethod string               `json:"paymentMethod"`
	PayoutDetails PayoutDetailsPayload `json:"payoutDetails"`
	Status        string               `json:"status"`
	RequestNotes  string               `json:"requestNotes,omitempty"`
	AdminNotes    string               `json:"adminNotes,omitempty"`
	ProcessedBy   *uint                `json:"processedBy,omitempty"`
	ProcessedAt   *time.Time           `json:"processedAt,omitempty"`
	ReceiptURL    string               `json:"receiptUrl,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func (p PayoutDetailsPayload) ToModel() models.PayoutDetails {
	return models.PayoutDetails{
		BankName:      p.BankName,
		AccountNumber: p.AccountNumber,
		AccountHolder: p.AccountHolder,
		TaxID:         p.TaxID,
		PixKey:        p.PixKey,
	}
}

func ToWithdrawalResponse(w models.WithdrawalRequest) WithdrawalResponse {
	return WithdrawalResponse{
		ID:            w.ID,
		ProviderID:    w.ProviderID,
		Amount:        w.Amount,
		PaymentMethod: w.PaymentMethod,
		PayoutDetails: PayoutDetailsPayload{
			BankName:      w.PayoutDetails.BankName,
			AccountNumber: w.PayoutDetails.AccountNumber,
			AccountHolder: w.PayoutDetails.AccountHolder,
			TaxID:         w.PayoutDetails.TaxID,
			PixKey:        w.PayoutDetails.PixKey,
		},
		Status:       string(w.Status),
		RequestNotes: w.RequestNotes,
		AdminNotes:   w.AdminNotes,
		ProcessedBy:  w.ProcessedBy,
		ProcessedAt:  w.ProcessedAt,
		ReceiptURL:   w.ReceiptURL,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

func ToWithdrawalResponses(ws []models.WithdrawalRequest) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, ToWithdrawalResponse(w))
	}
	return out
}
