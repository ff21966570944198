package tests

import (
	"time"

	"github.com/google/uuid"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

const (
	mtnPhone    = "+250781234567"
	airtelPhone = "+250731234567"
)

// fixture wires the payment pipeline against mocks.
type fixture struct {
	cfg       *config.PaymentConfig
	repo      *MockTransactionRepository
	mtn       *MockGateway
	airtel    *MockGateway
	registry  *provider.Registry
	cache     *MockCacheStore
	locks     *MockLockStore
	queue     *MockTaskQueue
	broadcast *MockBroadcaster
	notifier  *MockNotificationSink
	analytics *MockEventSink
	alerter   *MockAlerter
	engine    *service.Engine
	payments  *service.PaymentService
}

func newFixture() *fixture {
	f := &fixture{
		cfg: &config.PaymentConfig{
			MaxSingleAmount:    100000,
			RateLimit:          10,
			RateLimitWindow:    time.Hour,
			MaxRetries:         3,
			RetryBaseDelay:     30 * time.Second,
			DowntimeRetryDelay: 300 * time.Second,
			StatusCheckDelay:   30 * time.Second,
			MaxStatusChecks:    10,
			PaymentTimeout:     300 * time.Second,
			WebhookSecret:      "test-secret",
			WorkerCount:        2,
			PollInterval:       10 * time.Millisecond,
		},
		repo:      NewMockTransactionRepository(),
		mtn:       NewMockGateway(domain.ProviderMTN, "+25078"),
		airtel:    NewMockGateway(domain.ProviderAirtel, "+25073"),
		cache:     NewMockCacheStore(),
		locks:     NewMockLockStore(),
		queue:     NewMockTaskQueue(),
		broadcast: NewMockBroadcaster(),
		notifier:  NewMockNotificationSink(),
		analytics: NewMockEventSink(),
		alerter:   NewMockAlerter(),
	}

	f.registry = provider.NewRegistry(f.mtn, f.airtel)
	f.engine = service.NewEngine(
		f.cfg, f.repo, f.registry,
		f.cache, f.locks, f.queue, f.broadcast,
		f.notifier, f.analytics, f.alerter,
	)
	f.payments = service.NewPaymentService(
		f.cfg, f.repo, f.registry,
		f.cache, f.queue, f.engine, f.notifier, f.analytics,
	)
	return f
}

// seedTransaction stores a transaction and returns it.
func (f *fixture) seedTransaction(p domain.Provider, status domain.TransactionStatus) *domain.Transaction {
	phone := mtnPhone
	if p == domain.ProviderAirtel {
		phone = airtelPhone
	}

	now := time.Now()
	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		Type:      domain.TypeRidePayment,
		PayerID:   "payer-1",
		RideID:    "ride-1",
		Amount:    5000,
		Currency:  "RWF",
		Provider:  p,
		Metadata:  map[string]string{"phone_number": phone},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.repo.AddTransaction(tx)
	return tx
}

// contextOf builds a payment context for an attempt against tx.
func contextOf(tx *domain.Transaction, isRetry, downtimeRetry bool) *domain.PaymentContext {
	return &domain.PaymentContext{
		Transaction:   tx,
		RideID:        tx.RideID,
		RetryCount:    tx.RetryCount,
		Metadata:      tx.Metadata,
		IsRetry:       isRetry,
		DowntimeRetry: downtimeRetry,
	}
}
