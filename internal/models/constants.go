package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	PaymentMethodStripe = "stripe"
	PaymentMethodCash   = "cash"
)

const (
	RoleTourist = "tourist"
	RoleGuide   = "guide"
	RoleAdmin   = "admin"
)

// PaymentIntentSucceeded is the gateway status of a settled intent.
const PaymentIntentSucceeded = "succeeded"

const (
	// DefaultCurrency is charged when payments.currency is unset
	DefaultCurrency = "usd"

	// MinorUnitsPerMajor converts a price to cents
	MinorUnitsPerMajor = 100

	// DefaultGatewayTimeout bounds payment gateway calls, in seconds
	DefaultGatewayTimeout = 30

	// DefaultAccessTTLMinutes is the access token lifetime
	DefaultAccessTTLMinutes = 24 * 60

	// DefaultUserRateLimit is requests per user per window
	DefaultUserRateLimit = 120

	// DefaultUserRateWindow is the per-user window, in seconds
	DefaultUserRateWindow = 60

	// AuditQueueSize bounds the audit worker queue
	AuditQueueSize = 256
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func IsValidPaymentMethod(method string) bool {
	return method == PaymentMethodStripe || method == PaymentMethodCash
}

func IsValidRole(role string) bool {
	switch role {
	case RoleTourist, RoleGuide, RoleAdmin:
		return true
	}
	return false
}
