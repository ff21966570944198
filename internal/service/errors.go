package service

import (
	"errors"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

var (
	// ErrMissingField is returned when a required request field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidAmount is returned when the amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrAmountLimitExceeded is returned when the amount exceeds the
	// single-payment ceiling.
	ErrAmountLimitExceeded = errors.New("amount exceeds maximum limit")

	// ErrRateLimitExceeded is returned when a payer exceeds the submission
	// rate limit.
	ErrRateLimitExceeded = errors.New("payment rate limit exceeded")

	// ErrUnsupportedProvider is returned for providers outside the
	// supported set.
	ErrUnsupportedProvider = errors.New("unsupported payment provider")

	// ErrProviderUnavailable is returned when the selected provider is
	// flagged unavailable.
	ErrProviderUnavailable = errors.New("payment provider is currently unavailable")

	// ErrMissingPhoneNumber is returned for mobile-money payments without
	// a phone number.
	ErrMissingPhoneNumber = errors.New("phone number required for mobile money payments")

	// ErrInvalidPhoneNumber is returned when the phone number does not
	// match the provider's numbering plan.
	ErrInvalidPhoneNumber = errors.New("invalid phone number for selected provider")

	// ErrInvalidTransactionID is returned when the transaction ID is empty.
	ErrInvalidTransactionID = errors.New("invalid transaction id")

	// ErrCannotCancel is returned when cancellation is requested for a
	// transaction that is no longer pending or processing.
	ErrCannotCancel = errors.New("transaction can no longer be cancelled")

	// ErrTransactionBusy is returned when another worker holds the
	// transaction's processing lock.
	ErrTransactionBusy = errors.New("transaction is being processed")

	// ErrAmountMismatch is returned when a provider callback carries an
	// amount that does not match the stored transaction.
	ErrAmountMismatch = errors.New("callback amount does not match transaction")
)

// CodeForError maps a service error to the API error code.
func CodeForError(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return domain.CodeMissingField
	case errors.Is(err, ErrInvalidAmount):
		return domain.CodeInvalidAmount
	case errors.Is(err, ErrAmountLimitExceeded):
		return domain.CodeAmountLimitExceeded
	case errors.Is(err, ErrRateLimitExceeded):
		return domain.CodeRateLimitExceeded
	case errors.Is(err, ErrProviderUnavailable):
		return domain.CodeProviderUnavailable
	case errors.Is(err, ErrMissingPhoneNumber):
		return domain.CodeMissingPhoneNumber
	case errors.Is(err, ErrInvalidPhoneNumber):
		return domain.CodeInvalidPhoneNumber
	case errors.Is(err, ErrUnsupportedProvider):
		return domain.CodeMissingField
	case errors.Is(err, ErrAmountMismatch):
		return domain.CodeInvalidAmount
	default:
		return domain.CodeSystemError
	}
}
