package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

// ──────────────────────────────────────────────
// 2. STATE MACHINE AND FAILURE ROUTING
// ──────────────────────────────────────────────

func TestStatusGraph_Transitions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		from    domain.TransactionStatus
		to      domain.TransactionStatus
		allowed bool
	}{
		{domain.StatusPending, domain.StatusProcessing, true},
		{domain.StatusPending, domain.StatusCompleted, true},
		{domain.StatusPending, domain.StatusCancelled, true},
		{domain.StatusProcessing, domain.StatusCompleted, true},
		{domain.StatusProcessing, domain.StatusFailed, true},
		{domain.StatusProcessing, domain.StatusCancelled, true},
		{domain.StatusFailed, domain.StatusProcessing, true},
		{domain.StatusFailed, domain.StatusCompleted, false},
		{domain.StatusCompleted, domain.StatusFailed, false},
		{domain.StatusCompleted, domain.StatusProcessing, false},
		{domain.StatusCancelled, domain.StatusProcessing, false},
	}

	for _, tc := range testCases {
		if got := domain.CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestAdvance_ProviderAccepts_MovesToProcessing(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)

	result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Success {
		t.Error("expected success")
	}
	if result.ProviderReference == "" {
		t.Error("expected provider reference in result")
	}
	if result.EstimatedCompletion.IsZero() {
		t.Error("expected an estimated completion time")
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusProcessing {
		t.Errorf("expected processing, got %s", stored.Status)
	}
	if stored.ProviderTransactionID == "" {
		t.Error("expected stored provider reference")
	}

	checks := f.queue.TasksOfKind(redis.TaskStatusCheck)
	if len(checks) != 1 {
		t.Fatalf("expected 1 status check task, got %d", len(checks))
	}
	if checks[0].Poll != 1 {
		t.Errorf("expected first poll, got %d", checks[0].Poll)
	}
	if got := checks[0].RunAt.Sub(checks[0].EnqueuedAt); got != f.cfg.StatusCheckDelay {
		t.Errorf("expected status check delay %s, got %s", f.cfg.StatusCheckDelay, got)
	}
}

func TestAdvance_InsufficientFunds_FailsWithoutRetry(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)
	f.mtn.RequestError = &provider.Error{Kind: provider.FailureInsufficientFunds, Message: "NOT_ENOUGH_FUNDS"}

	result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.ErrorCode != domain.CodeInsufficientFunds {
		t.Errorf("expected INSUFFICIENT_FUNDS, got %s", result.ErrorCode)
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	if stored.FailureReason != domain.CodeInsufficientFunds {
		t.Errorf("expected failure reason INSUFFICIENT_FUNDS, got %s", stored.FailureReason)
	}
	if stored.RetryCount != 0 {
		t.Errorf("expected no retries, got %d", stored.RetryCount)
	}
	if len(f.queue.TasksOfKind(redis.TaskRetry)) != 0 {
		t.Error("expected no retry task for a business rejection")
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0] != service.EventInsufficientFunds {
		t.Errorf("expected insufficient funds notification, got %v", events)
	}
}

func TestAdvance_InvalidAccount_FailsWithoutRetry(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderAirtel, domain.StatusPending)
	f.airtel.RequestError = &provider.Error{Kind: provider.FailureInvalidAccount, Message: "PAYER_NOT_FOUND"}

	if _, err := f.engine.Advance(context.Background(), contextOf(tx, false, false)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusFailed || stored.FailureReason != domain.CodeInvalidAccount {
		t.Errorf("expected failed/INVALID_ACCOUNT, got %s/%s", stored.Status, stored.FailureReason)
	}
	if len(f.queue.TasksOfKind(redis.TaskRetry)) != 0 {
		t.Error("expected no retry task for a business rejection")
	}
}

func TestAdvance_UnclassifiedError_AlertsAndFails(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)
	f.mtn.RequestError = errors.New("unexpected response shape")

	if _, err := f.engine.Advance(context.Background(), contextOf(tx, false, false)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if atomic.LoadInt32(&f.alerter.AlertCallCount) != 1 {
		t.Error("expected an operator alert")
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusFailed || stored.FailureReason != domain.CodeSystemError {
		t.Errorf("expected failed/SYSTEM_ERROR, got %s/%s", stored.Status, stored.FailureReason)
	}
}

func TestAdvance_TerminalTransaction_NoOp(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.TransactionStatus{domain.StatusCompleted, domain.StatusCancelled} {
		f := newFixture()
		tx := f.seedTransaction(domain.ProviderMTN, status)

		result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if result.Status != status {
			t.Errorf("expected reported status %s, got %s", status, result.Status)
		}
		if atomic.LoadInt32(&f.mtn.RequestCallCount) != 0 {
			t.Error("expected no gateway call for a terminal transaction")
		}
		if atomic.LoadInt32(&f.repo.UpdateStatusCallCount) != 0 {
			t.Error("expected no status update for a terminal transaction")
		}
		if len(f.broadcast.Updates()) != 0 {
			t.Error("expected no broadcast for a terminal transaction")
		}
	}
}

func TestAdvance_BroadcastsEveryTransition(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)

	if _, err := f.engine.Advance(context.Background(), contextOf(tx, false, false)); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	updates := f.broadcast.Updates()
	if len(updates) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(updates))
	}
	if updates[0].TransactionID != tx.ID || updates[0].RideID != tx.RideID {
		t.Error("expected broadcast to carry transaction and ride IDs")
	}
	if updates[0].Status != string(domain.StatusProcessing) {
		t.Errorf("expected processing broadcast, got %s", updates[0].Status)
	}
}
