package repository

import (
	"context"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// TransactionRepository defines the persistence operations for transactions.
// Transactions are an append-only audit record: there is no delete, and
// updates are field-level.
type TransactionRepository interface {
	// Create persists a new transaction.
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a transaction by ID.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// GetByProviderReference retrieves a transaction by the reference the
	// provider assigned to it.
	GetByProviderReference(ctx context.Context, ref string) (*domain.Transaction, error)

	// ListByPayer returns a payer's transactions, newest first.
	ListByPayer(ctx context.Context, payerID string, limit int) ([]*domain.Transaction, error)

	// UpdateStatus applies a status transition. The update is guarded:
	// it returns ErrTerminalState when the stored transaction is already
	// completed or cancelled, leaving the row untouched.
	UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, failureReason string, completedAt *time.Time) error

	// SetProviderReference records the provider-assigned reference.
	SetProviderReference(ctx context.Context, id, ref string) error

	// SetProvider records a provider change after a failover dispatch.
	SetProvider(ctx context.Context, id string, provider domain.Provider) error

	// IncrementRetryCount bumps the retry counter and returns the new value.
	IncrementRetryCount(ctx context.Context, id string) (int, error)
}
