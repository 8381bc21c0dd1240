package domain

const (
	ModeStandalone = "standalone"
	ModeProxy      = "proxy"
)

// Local settlement states.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Provider settlement states, as reported upstream.
const (
	ProviderStatusPending   = "Pending"
	ProviderStatusConfirmed = "Confirmed"
	ProviderStatusFailed    = "Failed"
	ProviderStatusExpired   = "Expired"
)

// Envelope error codes.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodePaymentNotFound = "PAYMENT_NOT_FOUND"
	CodeProviderError   = "PROVIDER_ERROR"
	CodeInternal        = "INTERNAL_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUnsupported     = "NOT_SUPPORTED"
	CodeNotFound        = "NOT_FOUND"
)

// Event types published on the payment stream and to webhooks.
const (
	EventPaymentCreated = "payment.created"
	EventPaymentUpdated = "payment.updated"
	EventPaymentDeleted = "payment.deleted"
)
