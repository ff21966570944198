package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireTransactionLock attempts to acquire the advance lock for a
// transaction. At most one state machine advance may hold it at a time.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireTransactionLock(ctx context.Context, transactionID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:payment:%s", transactionID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseTransactionLock releases the advance lock for the given transaction.
func (s *LockStore) ReleaseTransactionLock(ctx context.Context, transactionID string) error {
	key := fmt.Sprintf("lock:payment:%s", transactionID)

	return s.client.Del(ctx, key).Err()
}
