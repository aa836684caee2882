package constants

// User roles, as carried in the token's userinfo.role claim
const (
	RoleCustomer = 0
	RoleAdmin    = 1
	RoleProvider = 2
)

// Payment methods accepted for payouts
const (
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodPix          = "pix"
)

// Withdrawal decisions accepted by the settlement endpoint
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Event routing keys
const (
	EventsExchange             = "payout_events"
	RoutingWithdrawalCreated   = "withdrawal.created"
	RoutingWithdrawalApproved  = "withdrawal.approved"
	RoutingWithdrawalRejected  = "withdrawal.rejected"
	RoutingOrderCompleted      = "order.completed"
	DefaultOrderCompletedQueue = "payouts.order_completed"
)

// Pagination
const (
	DefaultPage  = 0
	DefaultLimit = 10
	MaxLimit     = 100
)
