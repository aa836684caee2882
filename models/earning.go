package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Earning is the provider's net share of one completed, paid order.
// Only IsWithdrawn and WithdrawnByRequestID ever change after insert, and only once.
type Earning struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	ProviderID           uint            `gorm:"not null;index:idx_earnings_provider_fifo,priority:1" json:"providerId"`
	SourceOrderID        string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"sourceOrderId"`
	TotalAmount          int64           `gorm:"not null" json:"totalAmount"`
	CommissionRate       decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"commissionRate"`
	CommissionAmount     int64           `gorm:"not null" json:"commissionAmount"`
	ProviderAmount       int64           `gorm:"not null" json:"providerAmount"`
	IsWithdrawn          bool            `gorm:"not null;default:false" json:"isWithdrawn"`
	WithdrawnByRequestID *uint           `gorm:"index" json:"withdrawnByRequestId,omitempty"`
	CreatedAt            time.Time       `gorm:"autoCreateTime;index:idx_earnings_provider_fifo,priority:2" json:"createdAt"`
}

func (Earning) TableName() string {
	return "earnings"
}

var one = decimal.NewFromInt(1)

// CommissionRatePlaces matches the scale of the commission_rate column.
const CommissionRatePlaces = 4

// ValidCommissionRate reports whether rate lies in [0, 1] and fits the stored
// scale exactly. Trailing zeros past the scale are accepted.
func ValidCommissionRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(one) &&
		rate.Equal(rate.Truncate(CommissionRatePlaces))
}

// SplitCommission rounds the platform's share half-up to the smallest unit and
// gives the remainder to the provider, so the two parts always add up to total.
func SplitCommission(total int64, rate decimal.Decimal) (commission, provider int64) {
	commission = decimal.NewFromInt(total).Mul(rate).Round(0).IntPart()
	return commission, total - commission
}
