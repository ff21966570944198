package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// Cache TTL constants
const (
	StatusCacheTTL    = time.Hour        // Status snapshots are refreshed on every transition
	ProviderStatusTTL = 60 * time.Second // Availability flags recover automatically
)

// Key prefixes
const (
	statusCachePrefix    = "payment:status:"
	providerStatusPrefix = "provider:status:"
	rateLimitPrefix      = "payment:limit:"
)

// StatusSnapshot is the cached view of a transaction's current status.
type StatusSnapshot struct {
	TransactionID     string     `json:"transaction_id"`
	Status            string     `json:"status"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Provider          string     `json:"provider"`
	ProviderReference string     `json:"provider_reference,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// SnapshotOf builds a snapshot from a transaction.
func SnapshotOf(tx *domain.Transaction) *StatusSnapshot {
	return &StatusSnapshot{
		TransactionID:     tx.ID,
		Status:            string(tx.Status),
		Amount:            tx.Amount,
		Currency:          tx.Currency,
		Provider:          string(tx.Provider),
		ProviderReference: tx.ProviderTransactionID,
		CreatedAt:         tx.CreatedAt,
		UpdatedAt:         tx.UpdatedAt,
		CompletedAt:       tx.CompletedAt,
	}
}

// CacheStore handles payment status caching, provider availability flags
// and the per-payer submission rate limiter in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// SetStatus stores the status snapshot for a transaction.
func (s *CacheStore) SetStatus(ctx context.Context, snap *StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, statusCachePrefix+snap.TransactionID, data, StatusCacheTTL).Err()
}

// GetStatus retrieves the cached status snapshot. Returns nil on cache miss.
func (s *CacheStore) GetStatus(ctx context.Context, transactionID string) (*StatusSnapshot, error) {
	data, err := s.client.Get(ctx, statusCachePrefix+transactionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetProviderAvailable records a provider availability flag for its TTL.
func (s *CacheStore) SetProviderAvailable(ctx context.Context, provider domain.Provider, available bool) error {
	value := "0"
	if available {
		value = "1"
	}
	return s.client.Set(ctx, providerStatusPrefix+string(provider), value, ProviderStatusTTL).Err()
}

// IsProviderAvailable reads the availability flag. Providers default to
// available when no flag is cached.
func (s *CacheStore) IsProviderAvailable(ctx context.Context, provider domain.Provider) (bool, error) {
	value, err := s.client.Get(ctx, providerStatusPrefix+string(provider)).Result()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return true, err
	}
	return value == "1", nil
}

// AllowSubmission checks and records a payer submission against the sliding
// rate-limit window. Returns false once the payer has hit the limit.
func (s *CacheStore) AllowSubmission(ctx context.Context, payerID string, limit int, window time.Duration) (bool, error) {
	key := rateLimitPrefix + payerID
	now := time.Now()
	cutoff := now.Add(-window)

	if err := s.client.ZRemRangeByScore(ctx, key, "0", formatScore(cutoff)).Err(); err != nil {
		return false, err
	}

	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count >= int64(limit) {
		return false, nil
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, window)
	_, err = pipe.Exec(ctx)
	return true, err
}

func formatScore(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}
