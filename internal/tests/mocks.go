package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK TRANSACTION REPOSITORY
// ──────────────────────────────────────────────

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32
	IncrementCallCount    int32

	// Error injection
	CreateError       error
	UpdateStatusError error
}

// NewMockTransactionRepository creates a new mock transaction repository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
	}
}

// AddTransaction seeds a transaction into the mock repository.
func (m *MockTransactionRepository) AddTransaction(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID] = tx
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *tx
	m.transactions[tx.ID] = &stored
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *tx
	return &copy, nil
}

func (m *MockTransactionRepository) GetByProviderReference(ctx context.Context, ref string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tx := range m.transactions {
		if tx.ProviderTransactionID == ref {
			copy := *tx
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTransactionRepository) ListByPayer(ctx context.Context, payerID string, limit int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.PayerID == payerID && len(result) < limit {
			copy := *tx
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, failureReason string, completedAt *time.Time) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if tx.Status.Terminal() {
		return repository.ErrTerminalState
	}
	tx.Status = status
	tx.FailureReason = failureReason
	tx.UpdatedAt = time.Now()
	if completedAt != nil {
		t := *completedAt
		tx.CompletedAt = &t
	}
	return nil
}

func (m *MockTransactionRepository) SetProviderReference(ctx context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	tx.ProviderTransactionID = ref
	return nil
}

func (m *MockTransactionRepository) SetProvider(ctx context.Context, id string, p domain.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return repository.ErrNotFound
	}
	tx.Provider = p
	return nil
}

func (m *MockTransactionRepository) IncrementRetryCount(ctx context.Context, id string) (int, error) {
	atomic.AddInt32(&m.IncrementCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	tx.RetryCount++
	return tx.RetryCount, nil
}

// GetTransaction returns the stored transaction for test assertions.
func (m *MockTransactionRepository) GetTransaction(id string) *domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[id]
}

// ──────────────────────────────────────────────
// MOCK PROVIDER GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a configurable mock payment gateway.
type MockGateway struct {
	Provider domain.Provider
	Prefix   string

	// Counters for verification
	RequestCallCount int32
	StatusCallCount  int32

	// Behaviour injection
	RequestError  error
	RequestResult *provider.RequestResult
	StatusError   error
	StatusResult  *provider.StatusResult
}

// NewMockGateway creates a mock gateway for a provider and phone prefix.
func NewMockGateway(p domain.Provider, prefix string) *MockGateway {
	return &MockGateway{
		Provider:      p,
		Prefix:        prefix,
		RequestResult: &provider.RequestResult{ProviderTransactionID: "ref-" + string(p)},
		StatusResult:  &provider.StatusResult{Status: provider.StatusPending},
	}
}

func (m *MockGateway) Name() domain.Provider { return m.Provider }

func (m *MockGateway) ValidatePhoneNumber(phone string) bool {
	return len(phone) >= len(m.Prefix) && phone[:len(m.Prefix)] == m.Prefix
}

func (m *MockGateway) RequestPayment(ctx context.Context, phone string, amount int64, externalID, note string) (*provider.RequestResult, error) {
	atomic.AddInt32(&m.RequestCallCount, 1)
	if m.RequestError != nil {
		return nil, m.RequestError
	}
	return m.RequestResult, nil
}

func (m *MockGateway) CheckStatus(ctx context.Context, providerTxID string) (*provider.StatusResult, error) {
	atomic.AddInt32(&m.StatusCallCount, 1)
	if m.StatusError != nil {
		return nil, m.StatusError
	}
	return m.StatusResult, nil
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu           sync.RWMutex
	statuses     map[string]*redis.StatusSnapshot
	availability map[domain.Provider]bool

	// AllowAll controls the rate limiter outcome.
	AllowAll bool

	// Counters for verification
	SetStatusCallCount  int32
	SubmissionCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		statuses:     make(map[string]*redis.StatusSnapshot),
		availability: make(map[domain.Provider]bool),
		AllowAll:     true,
	}
}

func (m *MockCacheStore) SetStatus(ctx context.Context, snap *redis.StatusSnapshot) error {
	atomic.AddInt32(&m.SetStatusCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[snap.TransactionID] = snap
	return nil
}

func (m *MockCacheStore) GetStatus(ctx context.Context, transactionID string) (*redis.StatusSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[transactionID], nil
}

func (m *MockCacheStore) SetProviderAvailable(ctx context.Context, p domain.Provider, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availability[p] = available
	return nil
}

func (m *MockCacheStore) IsProviderAvailable(ctx context.Context, p domain.Provider) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	available, ok := m.availability[p]
	if !ok {
		return true, nil
	}
	return available, nil
}

func (m *MockCacheStore) AllowSubmission(ctx context.Context, payerID string, limit int, window time.Duration) (bool, error) {
	atomic.AddInt32(&m.SubmissionCallCount, 1)
	return m.AllowAll, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory implementation of LockStoreInterface.
type MockLockStore struct {
	mu   sync.Mutex
	held map[string]bool

	// Deny forces lock acquisition to fail.
	Deny bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]bool)}
}

func (m *MockLockStore) AcquireTransactionLock(ctx context.Context, transactionID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Deny || m.held[transactionID] {
		return false, nil
	}
	m.held[transactionID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseTransactionLock(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, transactionID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK TASK QUEUE
// ──────────────────────────────────────────────

// MockTaskQueue records scheduled tasks in memory.
type MockTaskQueue struct {
	mu    sync.Mutex
	tasks []redis.Task

	// Error injection
	EnqueueError error
}

// NewMockTaskQueue creates a new mock task queue.
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task redis.Task) error {
	if m.EnqueueError != nil {
		return m.EnqueueError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *MockTaskQueue) Claim(ctx context.Context, now time.Time, limit int) ([]redis.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due, rest []redis.Task
	for _, task := range m.tasks {
		if !task.RunAt.After(now) && len(due) < limit {
			due = append(due, task)
		} else {
			rest = append(rest, task)
		}
	}
	m.tasks = rest
	return due, nil
}

// Tasks returns all scheduled tasks for test assertions.
func (m *MockTaskQueue) Tasks() []redis.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]redis.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// TasksOfKind returns scheduled tasks of one kind.
func (m *MockTaskQueue) TasksOfKind(kind redis.TaskKind) []redis.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []redis.Task
	for _, task := range m.tasks {
		if task.Kind == kind {
			out = append(out, task)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK BROADCASTER AND SINKS
// ──────────────────────────────────────────────

// MockBroadcaster records published status updates.
type MockBroadcaster struct {
	mu      sync.Mutex
	updates []redis.StatusUpdate
}

// NewMockBroadcaster creates a new mock broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Publish(ctx context.Context, update redis.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update)
	return nil
}

// Updates returns all published updates for test assertions.
func (m *MockBroadcaster) Updates() []redis.StatusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]redis.StatusUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

// MockNotificationSink records delivered notification events.
type MockNotificationSink struct {
	mu     sync.Mutex
	events []string
}

// NewMockNotificationSink creates a new mock notification sink.
func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{}
}

func (m *MockNotificationSink) Notify(ctx context.Context, event string, tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns all delivered events for test assertions.
func (m *MockNotificationSink) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}

// MockEventSink records analytics events.
type MockEventSink struct {
	mu     sync.Mutex
	events []string
}

// NewMockEventSink creates a new mock event sink.
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

func (m *MockEventSink) Record(ctx context.Context, event string, tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// MockAlerter counts raised alerts.
type MockAlerter struct {
	AlertCallCount int32
}

// NewMockAlerter creates a new mock alerter.
func NewMockAlerter() *MockAlerter {
	return &MockAlerter{}
}

func (m *MockAlerter) Alert(ctx context.Context, tx *domain.Transaction, err error) {
	atomic.AddInt32(&m.AlertCallCount, 1)
}
