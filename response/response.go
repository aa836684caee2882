package response

import (
	"errors"
	"net/http"

	apperrors "payouts/errors"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Code       int         `json:"code"`
	Mess       string      `json:"mess"`
	ErrorCode  string      `json:"errorCode,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Success writes a 200 response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: 1,
		Mess: "Success",
		Data: data,
	})
}

// Created writes a 201 response
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: 1,
		Mess: "Created",
		Data: data,
	})
}

// SuccessWithPagination writes a 200 response with pagination metadata
func SuccessWithPagination(c *gin.Context, data interface{}, page, limit, total int) {
	c.JSON(http.StatusOK, Response{
		Code: 1,
		Mess: "Success",
		Data: data,
		Pagination: &Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	})
}

func Error(c *gin.Context, status int, code apperrors.ErrorCode, message string) {
	c.JSON(status, Response{
		Code:      0,
		Mess:      message,
		ErrorCode: string(code),
	})
}

// ServerError writes a 500 response
func ServerError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, Response{
		Code: 0,
		Mess: "Internal server error",
	})
}

// Unauthorized writes a 401 response
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:      0,
		Mess:      "Unauthorized",
		ErrorCode: string(apperrors.ErrCodeUnauthorized),
	})
}

// Forbidden writes a 403 response
func Forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, Response{
		Code:      0,
		Mess:      "Access denied",
		ErrorCode: string(apperrors.ErrCodeForbidden),
	})
}

// BadRequest writes a 400 response
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:      0,
		Mess:      message,
		ErrorCode: string(apperrors.ErrCodeValidation),
	})
}

// Conflict writes a 409 response
func Conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, Response{
		Code: 0,
		Mess: message,
	})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientBalance), errors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes the response for a service error. Internal failures
// never leak their message.
func FromError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := StatusFor(err)
	appErr := apperrors.GetAppError(err)

	switch {
	case appErr != nil && errors.Is(err, apperrors.ErrLedgerInvariant):
		Error(c, status, appErr.Code, "Ledger inconsistency detected, the operation was not applied")
	case status == http.StatusInternalServerError:
		ServerError(c)
	case appErr == nil:
		Error(c, status, "", http.StatusText(status))
	default:
		Error(c, status, appErr.Code, appErr.Message)
	}
}
