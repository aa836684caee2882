package dto

import (
	"time"

	"payouts/models"
	"payouts/services"
)

// OrderCompletedRequest is the HTTP form of an order.completed event.
// CommissionRate is a decimal string such as "0.15".
type OrderCompletedRequest struct {
	OrderID        string `json:"orderId" binding:"required,max=64"`
	ProviderID     uint   `json:"providerId" binding:"required"`
	TotalAmount    int64  `json:"totalAmount" binding:"required,min=1"`
	CommissionRate string `json:"commissionRate" binding:"required"`
}

type EarningResponse struct {
	ID               uint      `json:"id"`
	ProviderID       uint      `json:"providerId"`
	SourceOrderID    string    `json:"sourceOrderId"`
	TotalAmount      int64     `json:"totalAmount"`
	CommissionRate   string    `json:"commissionRate"`
	CommissionAmount int64     `json:"commissionAmount"`
	ProviderAmount   int64     `json:"providerAmount"`
	IsWithdrawn      bool      `json:"isWithdrawn"`
	CreatedAt        time.Time `json:"createdAt"`
}

// RecordEarningResponse reports whether the event created a new earning.
type RecordEarningResponse struct {
	Created bool            `json:"created"`
	Earning EarningResponse `json:"earning"`
}

type BalanceResponse struct {
	ProviderID          uint  `json:"providerId"`
	TotalEarnings       int64 `json:"totalEarnings"`
	WithdrawnAmount     int64 `json:"withdrawnAmount"`
	AvailableBalance    int64 `json:"availableBalance"`
	ReservedAmount      int64 `json:"reservedAmount"`
	WithdrawableBalance int64 `json:"withdrawableBalance"`
}

func ToEarningResponse(e models.Earning) EarningResponse {
	return EarningResponse{
		ID:               e.ID,
		ProviderID:       e.ProviderID,
		SourceOrderID:    e.SourceOrderID,
		TotalAmount:      e.TotalAmount,
		CommissionRate:   e.CommissionRate.String(),
		CommissionAmount: e.CommissionAmount,
		ProviderAmount:   e.ProviderAmount,
		IsWithdrawn:      e.IsWithdrawn,
		CreatedAt:        e.CreatedAt,
	}
}

func ToEarningResponses(es []models.Earning) []EarningResponse {
	out := make([]EarningResponse, 0, len(es))
	for _, e := range es {
		out = append(out, ToEarningResponse(e))
	}
	return out
}

func ToBalanceResponse(s services.BalanceSummary) BalanceResponse {
	return BalanceResponse{
		ProviderID:          s.ProviderID,
		TotalEarnings:       s.TotalEarnings,
		WithdrawnAmount:     s.WithdrawnAmount,
		AvailableBalance:    s.AvailableBalance,
		ReservedAmount:      s.ReservedAmount,
		WithdrawableBalance: s.WithdrawableBalance,
	}
}
