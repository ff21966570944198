package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
)

// TransactionRepository is a PostgreSQL implementation of
// repository.TransactionRepository.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a
// database transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const transactionColumns = `
	id, transaction_type, payer_id, payee_id, ride_id, amount, currency,
	provider, provider_transaction_id, description, metadata, status,
	failure_reason, retry_count, created_at, updated_at, completed_at
`

// Create persists a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			id, transaction_type, payer_id, payee_id, ride_id, amount, currency,
			provider, provider_transaction_id, description, metadata, status,
			failure_reason, retry_count, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.q.ExecContext(ctx, query,
		tx.ID,
		tx.Type,
		tx.PayerID,
		nullString(tx.PayeeID),
		nullString(tx.RideID),
		tx.Amount,
		tx.Currency,
		tx.Provider,
		nullString(tx.ProviderTransactionID),
		tx.Description,
		metadata,
		tx.Status,
		nullString(tx.FailureReason),
		tx.RetryCount,
		tx.CreatedAt,
		tx.UpdatedAt,
	)

	return err
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByProviderReference retrieves a transaction by its provider reference.
func (r *TransactionRepository) GetByProviderReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE provider_transaction_id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, ref))
}

// ListByPayer returns a payer's transactions, newest first.
func (r *TransactionRepository) ListByPayer(ctx context.Context, payerID string, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions WHERE payer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, payerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// UpdateStatus applies a status transition. The WHERE clause excludes
// terminal rows, so a transition against a completed or cancelled
// transaction affects nothing and is reported as ErrTerminalState.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, failureReason string, completedAt *time.Time) error {
	query := `
		UPDATE transactions
		SET status = $1,
		    failure_reason = $2,
		    completed_at = COALESCE($3, completed_at),
		    updated_at = NOW()
		WHERE id = $4 AND status NOT IN ('completed', 'cancelled')
	`

	result, err := r.q.ExecContext(ctx, query, status, nullString(failureReason), completedAt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a missing row from a terminal one.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrTerminalState
	}

	return nil
}

// SetProviderReference records the provider-assigned reference.
func (r *TransactionRepository) SetProviderReference(ctx context.Context, id, ref string) error {
	query := `UPDATE transactions SET provider_transaction_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, ref, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetProvider records a provider change after a failover dispatch.
func (r *TransactionRepository) SetProvider(ctx context.Context, id string, provider domain.Provider) error {
	query := `UPDATE transactions SET provider = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, provider, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// IncrementRetryCount bumps the retry counter and returns the new value.
func (r *TransactionRepository) IncrementRetryCount(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE transactions
		SET retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING retry_count
	`

	var count int
	err := r.q.QueryRowContext(ctx, query, id).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}

	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TransactionRepository) scanOne(row *sql.Row) (*domain.Transaction, error) {
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx            domain.Transaction
		payeeID       sql.NullString
		rideID        sql.NullString
		providerRef   sql.NullString
		failureReason sql.NullString
		metadata      []byte
		completedAt   sql.NullTime
	)

	err := row.Scan(
		&tx.ID,
		&tx.Type,
		&tx.PayerID,
		&payeeID,
		&rideID,
		&tx.Amount,
		&tx.Currency,
		&tx.Provider,
		&providerRef,
		&tx.Description,
		&metadata,
		&tx.Status,
		&failureReason,
		&tx.RetryCount,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.PayeeID = payeeID.String
	tx.RideID = rideID.String
	tx.ProviderTransactionID = providerRef.String
	tx.FailureReason = failureReason.String
	if completedAt.Valid {
		t := completedAt.Time
		tx.CompletedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, err
		}
	}
	if tx.Metadata == nil {
		tx.Metadata = make(map[string]string)
	}

	return &tx, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
