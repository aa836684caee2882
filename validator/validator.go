package validator

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"payouts/constants"
	"payouts/errors"
	"payouts/models"

	playground "github.com/go-playground/validator/v10"
)

var (
	validate     *playground.Validate
	validateOnce sync.Once

	accountNumberRegex = regexp.MustCompile(`^[0-9]{1,6}-?[0-9]{1,14}(-?[0-9Xx])?$`)
)

type bankTransferDetails struct {
	BankName      string `validate:"required,max=100"`
	AccountNumber string `validate:"required,bankaccount"`
	AccountHolder string `validate:"required,max=255"`
	TaxID         string `validate:"required,taxid"`
}

type pixDetails struct {
	PixKey string `validate:"required,max=140"`
}

func engine() *playground.Validate {
	validateOnce.Do(func() {
		validate = playground.New()
		_ = validate.RegisterValidation("taxid", func(fl playground.FieldLevel) bool {
			return IsValidTaxID(fl.Field().String())
		})
		_ = validate.RegisterValidation("bankaccount", func(fl playground.FieldLevel) bool {
			return accountNumberRegex.MatchString(strings.TrimSpace(fl.Field().String()))
		})
	})
	return validate
}

// ValidatePayoutDetails checks that the fields required by method are present and well formed.
func ValidatePayoutDetails(method string, details models.PayoutDetails) error {
	var target interface{}
	switch method {
	case constants.PaymentMethodBankTransfer:
		target = bankTransferDetails{
			BankName:      strings.TrimSpace(details.BankName),
			AccountNumber: strings.TrimSpace(details.AccountNumber),
			AccountHolder: strings.TrimSpace(details.AccountHolder),
			TaxID:         details.TaxID,
		}
	case constants.PaymentMethodPix:
		target = pixDetails{PixKey: strings.TrimSpace(details.PixKey)}
	case "":
		return errors.Validation(errors.ErrCodeRequiredField, "payment method is required")
	default:
		return errors.Validation(errors.ErrCodeInvalidMethod,
			fmt.Sprintf("payment method must be %s or %s", constants.PaymentMethodBankTransfer, constants.PaymentMethodPix))
	}

	if err := engine().Struct(target); err != nil {
		return translate(method, err)
	}
	return nil
}

func translate(method string, err error) error {
	verrs, ok := err.(playground.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.NewAppError(errors.ErrCodeValidation, "invalid payout details", errors.ErrValidation)
	}
	fe := verrs[0]
	field := fieldLabels[fe.Field()]
	if fe.Tag() == "required" {
		return errors.Validation(errors.ErrCodeRequiredField, fmt.Sprintf("%s is required for %s", field, method))
	}
	return errors.Validation(errors.ErrCodeInvalidFormat, fmt.Sprintf("%s is invalid", field))
}

var fieldLabels = map[string]string{
	"BankName":      "bank name",
	"AccountNumber": "account number",
	"AccountHolder": "account holder",
	"TaxID":         "CPF/CNPJ",
	"PixKey":        "PIX key",
}

// NormalizeTaxID strips punctuation from a CPF or CNPJ.
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidTaxID accepts an 11-digit CPF or a 14-digit CNPJ, punctuation allowed.
func IsValidTaxID(taxID string) bool {
	if strings.TrimSpace(taxID) == "" {
		return false
	}
	for _, r := range taxID {
		if (r < '0' || r > '9') && !strings.ContainsRune(".-/ ", r) {
			return false
		}
	}
	n := len(NormalizeTaxID(taxID))
	return n == 11 || n == 14
}
