package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable code returned to API clients.
type ErrorCode string

const (
	// Auth errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeMissingToken ErrorCode = "MISSING_TOKEN"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Ledger errors
	ErrCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidRate       ErrorCode = "INVALID_COMMISSION_RATE"
	ErrCodeInvalidProviderID ErrorCode = "INVALID_PROVIDER_ID"
	ErrCodeInvalidOrderID    ErrorCode = "INVALID_ORDER_ID"
	ErrCodeLedgerInvariant   ErrorCode = "LEDGER_INVARIANT"

	// Withdrawal errors
	ErrCodeInsufficientFund  ErrorCode = "INSUFFICIENT_FUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeInvalidMethod     ErrorCode = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidDecision   ErrorCode = "INVALID_DECISION"
	ErrCodeInvalidStatus     ErrorCode = "INVALID_STATUS"
	ErrCodeAmountNotAligned  ErrorCode = "AMOUNT_NOT_ALIGNED"

	// Database errors
	ErrCodeDBError     ErrorCode = "DB_ERROR"
	ErrCodeDBNotFound  ErrorCode = "DB_NOT_FOUND"
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"

	// Validation errors
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeRequiredField ErrorCode = "REQUIRED_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// AppError carries a code, a user-facing message and the sentinel it belongs to.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAppError reports whether err is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError returns the first AppError in err's chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

var (
	ErrValidation          = errors.New("validation error")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotFound            = errors.New("not found")
	ErrUnavailable         = errors.New("service temporarily unavailable")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")

	// ErrLedgerInvariant means stored ledger rows disagree with each other.
	// It is never caused by caller input.
	ErrLedgerInvariant = errors.New("ledger invariant violated")
)

// Validation wraps ErrValidation.
func Validation(code ErrorCode, message string) *AppError {
	return NewAppError(code, message, ErrValidation)
}

// NotFound wraps ErrNotFound.
func NotFound(message string) *AppError {
	return NewAppError(ErrCodeDBNotFound, message, ErrNotFound)
}
