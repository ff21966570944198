package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// FailureKind is the structured classification every gateway failure carries.
// Adapters assign kinds directly from wire-level information; callers never
// inspect error messages.
type FailureKind string

const (
	FailureNetwork           FailureKind = "network"
	FailureInsufficientFunds FailureKind = "insufficient_funds"
	FailureInvalidAccount    FailureKind = "invalid_account"
	FailureProviderDown      FailureKind = "provider_down"
	FailureUnclassified      FailureKind = "unclassified"
)

// Error is a tagged gateway failure.
type Error struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error, defaulting to Unclassified.
func KindOf(err error) FailureKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureUnclassified
}

// Status values reported by providers for an in-flight payment.
type Status string

const (
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
	StatusPending    Status = "PENDING"
)

// RequestResult is the acknowledgement of an accepted payment request.
type RequestResult struct {
	ProviderTransactionID string
}

// StatusResult is the outcome of a status check with the provider.
type StatusResult struct {
	Status Status
	Reason string
}

// Gateway is the uniform contract every mobile-money provider adapter
// implements. RequestPayment must treat externalID as an idempotency key:
// issuing the same request twice with the same externalID must not create
// two charges at the provider.
type Gateway interface {
	Name() domain.Provider
	ValidatePhoneNumber(phone string) bool
	RequestPayment(ctx context.Context, phone string, amount int64, externalID, note string) (*RequestResult, error)
	CheckStatus(ctx context.Context, providerTxID string) (*StatusResult, error)
}
