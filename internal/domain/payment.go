package domain

import "time"

// Error codes surfaced on PaymentResult and API error responses.
const (
	CodeMissingField        = "MISSING_FIELD"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeAmountLimitExceeded = "AMOUNT_LIMIT_EXCEEDED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	CodeMissingPhoneNumber  = "MISSING_PHONE_NUMBER"
	CodeInvalidPhoneNumber  = "INVALID_PHONE_NUMBER"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeMaxRetriesExceeded  = "MAX_RETRIES_EXCEEDED"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeInvalidAccount      = "INVALID_ACCOUNT"
	CodeProviderDowntime    = "PROVIDER_DOWNTIME"
	CodeSystemError         = "SYSTEM_ERROR"
)

// PaymentResult is the ephemeral outcome of a processing step. It drives
// transaction mutation and status broadcast and is never persisted itself.
type PaymentResult struct {
	Success             bool
	TransactionID       string
	ProviderReference   string
	Status              TransactionStatus
	ErrorMessage        string
	ErrorCode           string
	RetryRecommended    bool
	EstimatedCompletion time.Time
}

// PaymentContext is the in-memory working set for one processing attempt.
// It is owned by the state machine invocation that created it and is not
// persisted independently of the transaction it wraps.
type PaymentContext struct {
	Transaction *Transaction
	RideID      string
	RetryCount  int
	Metadata    map[string]string

	// IsRetry marks an attempt scheduled by the retry scheduler; it is what
	// permits the failed -> processing re-entry.
	IsRetry bool

	// DowntimeRetry marks the single delayed retry scheduled after provider
	// downtime. A second downtime failure on such an attempt is terminal.
	DowntimeRetry bool
}
