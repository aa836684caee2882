package services

import (
	"payouts/models"

	"gorm.io/gorm"
)

// BalanceSummary is a provider's balance derived from the ledger at one instant.
type BalanceSummary struct {
	ProviderID          uint  `json:"providerId"`
	TotalEarnings       int64 `json:"totalEarnings"`
	WithdrawnAmount     int64 `json:"withdrawnAmount"`
	AvailableBalance    int64 `json:"availableBalance"`
	ReservedAmount      int64 `json:"reservedAmount"`
	WithdrawableBalance int64 `json:"withdrawableBalance"`
}

// BalanceCalculator derives balances from earnings and pending requests. Nothing
// is cached: every call reads through the handle it is given, so passing a
// transaction makes the result consistent with that transaction's writes.
type BalanceCalculator struct{}

func NewBalanceCalculator() *BalanceCalculator {
	return &BalanceCalculator{}
}

const sumProviderAmount = "CAST(COALESCE(SUM(provider_amount), 0) AS BIGINT)"

func (b *BalanceCalculator) TotalEarnings(db *gorm.DB, providerID uint) (int64, error) {
	return sumEarnings(db.Where("provider_id = ?", providerID))
}

func (b *BalanceCalculator) WithdrawnAmount(db *gorm.DB, providerID uint) (int64, error) {
	return sumEarnings(db.Where("provider_id = ? AND is_withdrawn = ?", providerID, true))
}

// AvailableBalance is total earnings minus withdrawn earnings.
func (b *BalanceCalculator) AvailableBalance(db *gorm.DB, providerID uint) (int64, error) {
	total, err := b.TotalEarnings(db, providerID)
	if err != nil {
		return 0, err
	}
	withdrawn, err := b.WithdrawnAmount(db, providerID)
	if err != nil {
		return 0, err
	}
	return total - withdrawn, nil
}

// UnwithdrawnSum sums non-withdrawn earnings directly. It must always equal AvailableBalance.
func (b *BalanceCalculator) UnwithdrawnSum(db *gorm.DB, providerID uint) (int64, error) {
	return sumEarnings(db.Where("provider_id = ? AND is_withdrawn = ?", providerID, false))
}

// ReservedAmount sums the amounts of the provider's pending requests.
func (b *BalanceCalculator) ReservedAmount(db *gorm.DB, providerID uint) (int64, error) {
	var reserved int64
	err := db.Model(&models.WithdrawalRequest{}).
		Where("provider_id = ? AND status = ?", providerID, string(models.WithdrawalStatusPending)).
		Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").
		Row().Scan(&reserved)
	return reserved, err
}

func (b *BalanceCalculator) Summary(db *gorm.DB, providerID uint) (BalanceSummary, error) {
	summary := BalanceSummary{ProviderID: providerID}

	total, err := b.TotalEarnings(db, providerID)
	if err != nil {
		return summary, err
	}
	withdrawn, err := b.WithdrawnAmount(db, providerID)
	if err != nil {
		return summary, err
	}
	reserved, err := b.ReservedAmount(db, providerID)
	if err != nil {
		return summary, err
	}

	summary.TotalEarnings = total
	summary.WithdrawnAmount = withdrawn
	summary.AvailableBalance = total - withdrawn
	summary.ReservedAmount = reserved
	summary.WithdrawableBalance = summary.AvailableBalance - reserved
	return summary, nil
}

func sumEarnings(scoped *gorm.DB) (int64, error) {
	var sum int64
	err := scoped.Model(&models.Earning{}).Select(sumProviderAmount).Row().Scan(&sum)
	return sum, err
}
