package builders

import (
	"strings"

	"payouts/constants"
	"payouts/models"
	"payouts/services"
)

// WithdrawalInputBuilder assembles a CreateWithdrawalInput step by step.
type WithdrawalInputBuilder struct {
	input services.CreateWithdrawalInput
}

func NewWithdrawalInputBuilder() *WithdrawalInputBuilder {
	return &WithdrawalInputBuilder{}
}

// ForProvider sets the provider. SettlementAuthority overrides it with the caller.
func (b *WithdrawalInputBuilder) ForProvider(providerID uint) *WithdrawalInputBuilder {
	b.input.ProviderID = providerID
	return b
}

// WithAmount sets the amount in cents
func (b *WithdrawalInputBuilder) WithAmount(amount int64) *WithdrawalInputBuilder {
	b.input.Amount = amount
	return b
}

func (b *WithdrawalInputBuilder) WithBankTransfer(bankName, accountNumber, accountHolder, taxID string) *WithdrawalInputBuilder {
	b.input.PaymentMethod = constants.PaymentMethodBankTransfer
	b.input.PayoutDetails = models.PayoutDetails{
		BankName:      strings.TrimSpace(bankName),
		AccountNumber: strings.TrimSpace(accountNumber),
		AccountHolder: strings.TrimSpace(accountHolder),
		TaxID:         strings.TrimSpace(taxID),
	}
	return b
}

func (b *WithdrawalInputBuilder) WithPix(key string) *WithdrawalInputBuilder {
	b.input.PaymentMethod = constants.PaymentMethodPix
	b.input.PayoutDetails = models.PayoutDetails{PixKey: strings.TrimSpace(key)}
	return b
}

// WithMethod keeps only the details the method uses. Unknown methods are kept
// as given so validation can reject them.
func (b *WithdrawalInputBuilder) WithMethod(method string, details models.PayoutDetails) *WithdrawalInputBuilder {
	switch method {
	case constants.PaymentMethodBankTransfer:
		return b.WithBankTransfer(details.BankName, details.AccountNumber, details.AccountHolder, details.TaxID)
	case constants.PaymentMethodPix:
		return b.WithPix(details.PixKey)
	}
	b.input.PaymentMethod = method
	b.input.PayoutDetails = details
	return b
}

func (b *WithdrawalInputBuilder) WithNotes(notes string) *WithdrawalInputBuilder {
	b.input.Notes = strings.TrimSpace(notes)
	return b
}

func (b *WithdrawalInputBuilder) Build() services.CreateWithdrawalInput {
	return b.input
}
