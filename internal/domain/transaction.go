package domain

import "time"

// Provider identifies a payment provider.
type Provider string

const (
	ProviderMTN    Provider = "mtn_momo"
	ProviderAirtel Provider = "airtel_money"
	ProviderCash   Provider = "cash"
)

// TransactionStatus represents the current status of a transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted from s.
// Failed transactions are not terminal: the scheduler may re-enter processing
// through an explicit retry.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// validTransitions defines the allowed status graph.
var validTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusProcessing},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransition reports whether a transition from one status to another is allowed.
func CanTransition(from, to TransactionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransactionType classifies what a transaction pays for.
type TransactionType string

const (
	TypeRidePayment TransactionType = "ride_payment"
	TypeWalletTopup TransactionType = "wallet_topup"
)

// Transaction is the durable record of a single payment attempt chain.
// It is an append-only audit record: rows are never deleted, and updates
// are field-level.
type Transaction struct {
	ID   string
	Type TransactionType

	PayerID string
	PayeeID string // optional, e.g. the driver receiving a ride payment
	RideID  string // optional reference to the ride being paid for

	Amount   int64 // minor currency units
	Currency string

	Provider              Provider
	ProviderTransactionID string // set once the provider acknowledges

	Description string
	Metadata    map[string]string

	Status        TransactionStatus
	FailureReason string // set only when Status == failed
	RetryCount    int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// MobileMoney reports whether the transaction's provider requires a
// phone-number-addressed wallet.
func (t *Transaction) MobileMoney() bool {
	return t.Provider == ProviderMTN || t.Provider == ProviderAirtel
}

// PhoneNumber returns the wallet phone number attached at submission.
func (t *Transaction) PhoneNumber() string {
	return t.Metadata["phone_number"]
}
