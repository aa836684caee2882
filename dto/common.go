package dto

import "payouts/response"

// PaginatedResponse is the shape of a page of T in the API docs.
type PaginatedResponse[T any] struct {
	Data       T                   `json:"data"`
	Pagination response.Pagination `json:"pagination"`
}

// PageQuery is bound from ?page&limit. Pages start at 0.
type PageQuery struct {
	Page  int `form:"page,default=0" binding:"min=0,max=100000"`
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

// Page shapes referenced by the API docs
type (
	EarningPage    = PaginatedResponse[[]EarningResponse]
	WithdrawalPage = PaginatedResponse[[]WithdrawalResponse]
)
