package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

// ──────────────────────────────────────────────
// 1. PAYMENT SUBMISSION
// ──────────────────────────────────────────────

func validSubmitRequest() *service.SubmitRequest {
	return &service.SubmitRequest{
		PayerID:     "payer-1",
		RideID:      "ride-1",
		Amount:      5000,
		Provider:    domain.ProviderMTN,
		PhoneNumber: mtnPhone,
		Description: "ride fare",
	}
}

func TestSubmit_ValidMobileMoney_Accepted(t *testing.T) {
	t.Parallel()

	f := newFixture()

	result, err := f.payments.Submit(context.Background(), validSubmitRequest())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Success {
		t.Error("expected success")
	}
	if result.Status != domain.StatusProcessing {
		t.Errorf("expected reported status processing, got %s", result.Status)
	}
	if result.TransactionID == "" {
		t.Fatal("expected transaction ID to be set")
	}
	if result.EstimatedCompletion.IsZero() {
		t.Error("expected an estimated completion time")
	}

	tx := f.repo.GetTransaction(result.TransactionID)
	if tx == nil {
		t.Fatal("expected transaction to be persisted")
	}
	if tx.Status != domain.StatusPending {
		t.Errorf("expected stored status pending, got %s", tx.Status)
	}
	if tx.PhoneNumber() != mtnPhone {
		t.Errorf("expected phone number in metadata, got %q", tx.PhoneNumber())
	}
	if tx.Metadata["provider_fee"] != "100" {
		t.Errorf("expected provider fee 100 for 5000 RWF on MTN, got %q", tx.Metadata["provider_fee"])
	}

	// The submission must not call the gateway; the worker does that.
	if atomic.LoadInt32(&f.mtn.RequestCallCount) != 0 {
		t.Error("expected no gateway call during submission")
	}

	queued := f.queue.TasksOfKind(redis.TaskProcess)
	if len(queued) != 1 {
		t.Fatalf("expected 1 process task, got %d", len(queued))
	}
	if queued[0].TransactionID != result.TransactionID {
		t.Error("expected process task for the new transaction")
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0] != service.EventPaymentInitiated {
		t.Errorf("expected initiated notification, got %v", events)
	}
}

func TestSubmit_Validation_Rejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(req *service.SubmitRequest)
		wantErr error
	}{
		{
			name:    "missing payer",
			mutate:  func(req *service.SubmitRequest) { req.PayerID = "" },
			wantErr: service.ErrMissingField,
		},
		{
			name:    "zero amount",
			mutate:  func(req *service.SubmitRequest) { req.Amount = 0 },
			wantErr: service.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(req *service.SubmitRequest) { req.Amount = -100 },
			wantErr: service.ErrInvalidAmount,
		},
		{
			name:    "amount over ceiling",
			mutate:  func(req *service.SubmitRequest) { req.Amount = 100001 },
			wantErr: service.ErrAmountLimitExceeded,
		},
		{
			name:    "unsupported provider",
			mutate:  func(req *service.SubmitRequest) { req.Provider = "tigo_cash" },
			wantErr: service.ErrUnsupportedProvider,
		},
		{
			name:    "missing phone number",
			mutate:  func(req *service.SubmitRequest) { req.PhoneNumber = "" },
			wantErr: service.ErrMissingPhoneNumber,
		},
		{
			name:    "phone on wrong network",
			mutate:  func(req *service.SubmitRequest) { req.PhoneNumber = airtelPhone },
			wantErr: service.ErrInvalidPhoneNumber,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture()
			req := validSubmitRequest()
			tc.mutate(req)

			_, err := f.payments.Submit(context.Background(), req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got: %v", tc.wantErr, err)
			}

			if atomic.LoadInt32(&f.repo.CreateCallCount) != 0 {
				t.Error("expected no transaction to be created")
			}
		})
	}
}

func TestSubmit_RateLimited_Rejects(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.cache.AllowAll = false

	_, err := f.payments.Submit(context.Background(), validSubmitRequest())
	if !errors.Is(err, service.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit error, got: %v", err)
	}
	if atomic.LoadInt32(&f.repo.CreateCallCount) != 0 {
		t.Error("expected no transaction to be created")
	}
}

func TestSubmit_ProviderUnavailable_Rejects(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if err := f.cache.SetProviderAvailable(context.Background(), domain.ProviderMTN, false); err != nil {
		t.Fatal(err)
	}

	_, err := f.payments.Submit(context.Background(), validSubmitRequest())
	if !errors.Is(err, service.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got: %v", err)
	}
}

func TestSubmit_Cash_CompletesSynchronously(t *testing.T) {
	t.Parallel()

	f := newFixture()
	req := validSubmitRequest()
	req.Provider = domain.ProviderCash
	req.PhoneNumber = ""

	result, err := f.payments.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}

	tx := f.repo.GetTransaction(result.TransactionID)
	if tx == nil || tx.Status != domain.StatusCompleted {
		t.Fatal("expected stored transaction to be completed")
	}
	if tx.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}

	// Cash never reaches a gateway or the task queue.
	if atomic.LoadInt32(&f.mtn.RequestCallCount) != 0 || atomic.LoadInt32(&f.airtel.RequestCallCount) != 0 {
		t.Error("expected no gateway calls for cash")
	}
	if len(f.queue.Tasks()) != 0 {
		t.Errorf("expected no scheduled tasks, got %d", len(f.queue.Tasks()))
	}
}

func TestGetStatus_FallsBackToStore(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusProcessing)

	snap, err := f.payments.GetStatus(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if snap.Status != string(domain.StatusProcessing) {
		t.Errorf("expected processing snapshot, got %s", snap.Status)
	}

	// The read-through populates the cache.
	cached, _ := f.cache.GetStatus(context.Background(), tx.ID)
	if cached == nil {
		t.Error("expected snapshot to be cached after fallback")
	}
}

func TestCancel_PendingTransaction_Cancels(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)

	cancelled, err := f.payments.Cancel(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusCancelled {
		t.Errorf("expected stored status cancelled, got %s", stored.Status)
	}
}

func TestCancel_CompletedTransaction_Rejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusCompleted)

	_, err := f.payments.Cancel(context.Background(), tx.ID)
	if !errors.Is(err, service.ErrCannotCancel) {
		t.Fatalf("expected cannot-cancel error, got: %v", err)
	}
}
