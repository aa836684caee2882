package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected:
		return true
	}
	return false
}

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

// PayoutDetails holds the destination of a payout. Which fields are required
// depends on the payment method.
type PayoutDetails struct {
	BankName      string `gorm:"type:varchar(100)" json:"bankName,omitempty"`
	AccountNumber string `gorm:"type:varchar(50)" json:"accountNumber,omitempty"`
	AccountHolder string `gorm:"type:varchar(255)" json:"accountHolder,omitempty"`
	TaxID         string `gorm:"type:varchar(20)" json:"taxId,omitempty"`
	PixKey        string `gorm:"type:varchar(140)" json:"pixKey,omitempty"`
}

type WithdrawalRequest struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	ProviderID    uint             `gorm:"not null;index" json:"providerId"`
	Amount        int64            `gorm:"not null" json:"amount"`
	PaymentMethod string           `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	PayoutDetails PayoutDetails    `gorm:"embedded" json:"payoutDetails"`
	Status        WithdrawalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestNotes  string           `gorm:"type:varchar(500)" json:"requestNotes,omitempty"`
	AdminNotes    string           `gorm:"type:varchar(500)" json:"adminNotes,omitempty"`
	ProcessedBy   *uint            `json:"processedBy,omitempty"`
	ProcessedAt   *time.Time       `json:"processedAt,omitempty"`
	ReceiptURL    string           `gorm:"type:varchar(500)" json:"receiptUrl,omitempty"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// AllModels lists every table owned by the service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&ProviderAccount{},
		&Earning{},
		&WithdrawalRequest{},
		&WithdrawalReservation{},
	}
}
