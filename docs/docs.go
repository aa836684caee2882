// Package docs registers the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/earnings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Earnings of the calling provider, newest first",
                "produces": ["application/json"],
                "tags": ["provider"],
                "summary": "List own earnings",
                "parameters": [
                    {"type": "integer", "description": "Page, starting at 0", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.EarningPage"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/balance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["provider"],
                "summary": "Own balance",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.BalanceResponse"}}
                }
            }
        },
        "/withdrawals": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["provider"],
                "summary": "List own withdrawals",
                "parameters": [
                    {"type": "integer", "description": "Page, starting at 0", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WithdrawalPage"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Reserves the oldest earnings that add up to the amount. Honours Idempotency-Key.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["provider"],
                "summary": "Request a withdrawal",
                "parameters": [
                    {"type": "string", "description": "Replay key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Withdrawal", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateWithdrawalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.WithdrawalResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/withdrawals/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["provider"],
                "summary": "Get one withdrawal",
                "parameters": [
                    {"type": "integer", "description": "Withdrawal ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WithdrawalResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/admin/withdrawals": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Newest first. name matches the account holder or PIX key, ignoring case and accents.",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Admin withdrawal listing",
                "parameters": [
                    {"type": "string", "description": "pending, approved or rejected", "name": "status", "in": "query"},
                    {"type": "string", "description": "Holder name or PIX key", "name": "name", "in": "query"},
                    {"type": "integer", "description": "Provider", "name": "providerId", "in": "query"},
                    {"type": "integer", "description": "Page, starting at 0", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WithdrawalPage"}}
                }
            }
        },
        "/admin/withdrawals/pending": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Pending requests, oldest first",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Pending queue",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.WithdrawalResponse"}}}
                }
            }
        },
        "/admin/withdrawals/{id}/resolve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Rejection requires notes",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Approve or reject",
                "parameters": [
                    {"type": "integer", "description": "Withdrawal ID", "name": "id", "in": "path", "required": true},
                    {"description": "Decision", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.ResolveWithdrawalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WithdrawalResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/admin/withdrawals/{id}/receipt": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Upload payout proof",
                "parameters": [
                    {"type": "integer", "description": "Withdrawal ID", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Receipt", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WithdrawalResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/admin/providers/{id}/balance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Provider balance",
                "parameters": [
                    {"type": "integer", "description": "Provider ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.BalanceResponse"}}
                }
            }
        },
        "/admin/order-completed": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Same effect as the queue consumer. A repeated orderId returns the stored earning with created=false.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Ingest order.completed",
                "parameters": [
                    {"description": "Event", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.OrderCompletedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.RecordEarningResponse"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.RecordEarningResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.BalanceResponse": {
            "type": "object",
            "properties": {
                "providerId": {"type": "integer"},
                "totalEarnings": {"type": "integer"},
                "withdrawnAmount": {"type": "integer"},
                "availableBalance": {"type": "integer"},
                "reservedAmount": {"type": "integer"},
                "withdrawableBalance": {"type": "integer"}
            }
        },
        "dto.PayoutDetailsPayload": {
            "type": "object",
            "properties": {
                "bankName": {"type": "string"},
                "accountNumber": {"type": "string"},
                "accountHolder": {"type": "string"},
                "taxId": {"type": "string"},
                "pixKey": {"type": "string"}
            }
        },
        "dto.CreateWithdrawalRequest": {
            "type": "object",
            "required": ["amount", "paymentMethod"],
            "properties": {
                "amount": {"type": "integer", "minimum": 1},
                "paymentMethod": {"type": "string", "enum": ["bank_transfer", "pix"]},
                "payoutDetails": {"$ref": "#/definitions/dto.PayoutDetailsPayload"},
                "notes": {"type": "string", "maxLength": 500}
            }
        },
        "dto.ResolveWithdrawalRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["approved", "rejected"]},
                "notes": {"type": "string", "maxLength": 500}
            }
        },
        "dto.OrderCompletedRequest": {
            "type": "object",
            "required": ["orderId", "providerId", "totalAmount", "commissionRate"],
            "properties": {
                "orderId": {"type": "string", "maxLength": 64},
                "providerId": {"type": "integer"},
                "totalAmount": {"type": "integer", "minimum": 1},
                "commissionRate": {"type": "string"}
            }
        },
        "dto.EarningResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "providerId": {"type": "integer"},
                "sourceOrderId": {"type": "string"},
                "totalAmount": {"type": "integer"},
                "commissionRate": {"type": "string"},
                "commissionAmount": {"type": "integer"},
                "providerAmount": {"type": "integer"},
                "isWithdrawn": {"type": "boolean"},
                "createdAt": {"type": "string"}
            }
        },
        "dto.RecordEarningResponse": {
            "type": "object",
            "properties": {
                "created": {"type": "boolean"},
                "earning": {"$ref": "#/definitions/dto.EarningResponse"}
            }
        },
        "dto.WithdrawalResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "providerId": {"type": "integer"},
                "amount": {"type": "integer"},
                "paymentMethod": {"type": "string"},
                "payoutDetails": {"$ref": "#/definitions/dto.PayoutDetailsPayload"},
                "status": {"type": "string", "enum": ["pending", "approved", "rejected"]},
                "requestNotes": {"type": "string"},
                "adminNotes": {"type": "string"},
                "processedBy": {"type": "integer"},
                "processedAt": {"type": "string"},
                "receiptUrl": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "dto.EarningPage": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/dto.EarningResponse"}},
                "pagination": {"$ref": "#/definitions/response.Pagination"}
            }
        },
        "dto.WithdrawalPage": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/dto.WithdrawalResponse"}},
                "pagination": {"$ref": "#/definitions/response.Pagination"}
            }
        },
        "response.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "mess": {"type": "string"},
                "errorCode": {"type": "string"},
                "data": {},
                "pagination": {"$ref": "#/definitions/response.Pagination"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Payouts API",
	Description:      "Provider earnings ledger and withdrawal settlement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
