package models

import "time"

// WithdrawalReservation ties an earning to the pending request that will consume it.
type WithdrawalReservation struct {
	ID                  uint      `gorm:"primaryKey"`
	WithdrawalRequestID uint      `gorm:"not null;index"`
	EarningID           uint      `gorm:"not null;uniqueIndex"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`

	Earning Earning `gorm:"foreignKey:EarningID" json:"-"`
}

func (WithdrawalReservation) TableName() string {
	return "withdrawal_reservations"
}
