package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
)

// submitDispatchDelay is how soon after acceptance the async processor
// picks up a new transaction.
const submitDispatchDelay = time.Second

// SubmitRequest carries a validated payment submission.
type SubmitRequest struct {
	PayerID     string
	PayeeID     string
	RideID      string
	Amount      int64
	Provider    domain.Provider
	PhoneNumber string
	Description string
	Metadata    map[string]string
}

// PaymentService is the entry point of the payment pipeline. It validates
// submissions, persists the transaction and hands it to the async
// processor; the engine owns everything after acceptance.
type PaymentService struct {
	cfg       *config.PaymentConfig
	repo      repository.TransactionRepository
	registry  *provider.Registry
	cache     redis.CacheStoreInterface
	queue     redis.TaskQueueInterface
	engine    *Engine
	notifier  NotificationSink
	analytics EventSink
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	cfg *config.PaymentConfig,
	repo repository.TransactionRepository,
	registry *provider.Registry,
	cache redis.CacheStoreInterface,
	queue redis.TaskQueueInterface,
	engine *Engine,
	notifier NotificationSink,
	analytics EventSink,
) *PaymentService {
	return &PaymentService{
		cfg:       cfg,
		repo:      repo,
		registry:  registry,
		cache:     cache,
		queue:     queue,
		engine:    engine,
		notifier:  notifier,
		analytics: analytics,
	}
}

// Submit validates and accepts a payment. Mobile-money payments are
// accepted for asynchronous processing; cash settles before Submit
// returns.
func (s *PaymentService) Submit(ctx context.Context, req *SubmitRequest) (*domain.PaymentResult, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	now := time.Now()
	metadata := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.PhoneNumber != "" {
		metadata["phone_number"] = req.PhoneNumber
	}
	metadata["provider_fee"] = strconv.FormatInt(ProviderFee(req.Provider, req.Amount), 10)

	txType := domain.TypeWalletTopup
	if req.RideID != "" {
		txType = domain.TypeRidePayment
	}

	tx := &domain.Transaction{
		ID:          uuid.New().String(),
		Type:        txType,
		PayerID:     req.PayerID,
		PayeeID:     req.PayeeID,
		RideID:      req.RideID,
		Amount:      req.Amount,
		Currency:    "RWF",
		Provider:    req.Provider,
		Description: req.Description,
		Metadata:    metadata,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := s.cache.SetStatus(ctx, redis.SnapshotOf(tx)); err != nil {
		log.Printf("payment: status cache write failed for %s: %v", tx.ID, err)
	}

	s.notifier.Notify(ctx, EventPaymentInitiated, tx)
	s.analytics.Record(ctx, EventPaymentInitiated, tx)

	// Cash has no provider leg and settles synchronously.
	if tx.Provider == domain.ProviderCash {
		return s.engine.Advance(ctx, &domain.PaymentContext{
			Transaction: tx,
			RideID:      tx.RideID,
			Metadata:    tx.Metadata,
		})
	}

	if err := s.queue.Enqueue(ctx, redis.NewTask(redis.TaskProcess, tx.ID, submitDispatchDelay)); err != nil {
		return nil, fmt.Errorf("failed to schedule processing: %w", err)
	}

	return &domain.PaymentResult{
		Success:             true,
		TransactionID:       tx.ID,
		Status:              domain.StatusProcessing,
		EstimatedCompletion: now.Add(s.cfg.PaymentTimeout),
	}, nil
}

// validate runs the submission checks in order: required fields, amount
// bounds, rate limit, provider support and availability, phone number.
func (s *PaymentService) validate(ctx context.Context, req *SubmitRequest) error {
	if req.PayerID == "" || req.Provider == "" {
		return ErrMissingField
	}
	if req.Amount <= 0 {
		return ErrInvalidAmount
	}
	if req.Amount > s.cfg.MaxSingleAmount {
		return ErrAmountLimitExceeded
	}

	allowed, err := s.cache.AllowSubmission(ctx, req.PayerID, s.cfg.RateLimit, s.cfg.RateLimitWindow)
	if err != nil {
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return ErrRateLimitExceeded
	}

	if req.Provider == domain.ProviderCash {
		return nil
	}

	gw, ok := s.registry.Get(req.Provider)
	if !ok {
		return ErrUnsupportedProvider
	}

	available, err := s.cache.IsProviderAvailable(ctx, req.Provider)
	if err != nil {
		log.Printf("payment: availability check failed for %s: %v", req.Provider, err)
	} else if !available {
		return ErrProviderUnavailable
	}

	if req.PhoneNumber == "" {
		return ErrMissingPhoneNumber
	}
	if !gw.ValidatePhoneNumber(req.PhoneNumber) {
		return ErrInvalidPhoneNumber
	}

	return nil
}

// GetStatus returns the current status snapshot for a transaction,
// served from the cache when fresh.
func (s *PaymentService) GetStatus(ctx context.Context, transactionID string) (*redis.StatusSnapshot, error) {
	if transactionID == "" {
		return nil, ErrInvalidTransactionID
	}

	snap, err := s.cache.GetStatus(ctx, transactionID)
	if err != nil {
		log.Printf("payment: status cache read failed for %s: %v", transactionID, err)
	}
	if snap != nil {
		return snap, nil
	}

	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	snap = redis.SnapshotOf(tx)
	if err := s.cache.SetStatus(ctx, snap); err != nil {
		log.Printf("payment: status cache refresh failed for %s: %v", transactionID, err)
	}
	return snap, nil
}

// Cancel cancels a transaction that has not reached a terminal state.
func (s *PaymentService) Cancel(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if transactionID == "" {
		return nil, ErrInvalidTransactionID
	}

	tx, err := s.repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Cancel(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ListByPayer returns a payer's payment history, newest first.
func (s *PaymentService) ListByPayer(ctx context.Context, payerID string, limit int) ([]*domain.Transaction, error) {
	if payerID == "" {
		return nil, ErrMissingField
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByPayer(ctx, payerID, limit)
}
