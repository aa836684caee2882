package models

import "time"

// ProviderAccount anchors provider-scoped row locks. It holds no balance.
type ProviderAccount struct {
	ProviderID uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ProviderAccount) TableName() string {
	return "provider_accounts"
}
