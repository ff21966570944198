package redis

import (
	"context"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
)

// CacheStoreInterface defines status cache, provider availability and
// rate-limit operations.
type CacheStoreInterface interface {
	SetStatus(ctx context.Context, snap *StatusSnapshot) error
	GetStatus(ctx context.Context, transactionID string) (*StatusSnapshot, error)
	SetProviderAvailable(ctx context.Context, provider domain.Provider, available bool) error
	IsProviderAvailable(ctx context.Context, provider domain.Provider) (bool, error)
	AllowSubmission(ctx context.Context, payerID string, limit int, window time.Duration) (bool, error)
}

// LockStoreInterface defines the per-transaction advance lock.
type LockStoreInterface interface {
	AcquireTransactionLock(ctx context.Context, transactionID string, ttl time.Duration) (bool, error)
	ReleaseTransactionLock(ctx context.Context, transactionID string) error
}

// TaskQueueInterface defines the durable delayed task queue.
type TaskQueueInterface interface {
	Enqueue(ctx context.Context, task Task) error
	Claim(ctx context.Context, now time.Time, limit int) ([]Task, error)
}

// BroadcasterInterface defines status-change fan-out.
type BroadcasterInterface interface {
	Publish(ctx context.Context, update StatusUpdate) error
}

// Ensure concrete types implement interfaces.
var (
	_ CacheStoreInterface  = (*CacheStore)(nil)
	_ LockStoreInterface   = (*LockStore)(nil)
	_ TaskQueueInterface   = (*TaskQueue)(nil)
	_ BroadcasterInterface = (*Broadcaster)(nil)
)
