package tests

import (
	"context"
	"testing"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/service"
)

// ──────────────────────────────────────────────
// 3. RETRY SCHEDULING AND PROVIDER DOWNTIME
// ──────────────────────────────────────────────

func networkError() error {
	return &provider.Error{Kind: provider.FailureNetwork, Message: "connection timed out"}
}

func downtimeError() error {
	return &provider.Error{Kind: provider.FailureProviderDown, Message: "SERVICE_UNAVAILABLE"}
}

func TestAdvance_NetworkFailure_SchedulesBackoffRetry(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		seedCount int
		wantDelay time.Duration
		wantCount int
	}{
		{name: "first failure", seedCount: 0, wantDelay: 30 * time.Second, wantCount: 1},
		{name: "second failure", seedCount: 1, wantDelay: 60 * time.Second, wantCount: 2},
		{name: "third failure", seedCount: 2, wantDelay: 120 * time.Second, wantCount: 3},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture()
			status := domain.StatusPending
			if tc.seedCount > 0 {
				status = domain.StatusFailed
			}
			tx := f.seedTransaction(domain.ProviderMTN, status)
			tx.RetryCount = tc.seedCount
			f.mtn.RequestError = networkError()

			result, err := f.engine.Advance(context.Background(), contextOf(tx, tc.seedCount > 0, false))
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if !result.RetryRecommended {
				t.Error("expected retry to be recommended")
			}
			if result.ErrorCode != domain.CodeNetworkError {
				t.Errorf("expected NETWORK_ERROR, got %s", result.ErrorCode)
			}

			stored := f.repo.GetTransaction(tx.ID)
			if stored.Status != domain.StatusFailed {
				t.Errorf("expected failed, got %s", stored.Status)
			}
			if stored.RetryCount != tc.wantCount {
				t.Errorf("expected retry count %d, got %d", tc.wantCount, stored.RetryCount)
			}

			retries := f.queue.TasksOfKind(redis.TaskRetry)
			if len(retries) != 1 {
				t.Fatalf("expected 1 retry task, got %d", len(retries))
			}
			if got := retries[0].RunAt.Sub(retries[0].EnqueuedAt); got != tc.wantDelay {
				t.Errorf("expected delay %s, got %s", tc.wantDelay, got)
			}
			if retries[0].Attempt != tc.wantCount {
				t.Errorf("expected attempt %d, got %d", tc.wantCount, retries[0].Attempt)
			}

			// Retryable failures do not notify the payer.
			if len(f.notifier.Events()) != 0 {
				t.Errorf("expected no notifications, got %v", f.notifier.Events())
			}
		})
	}
}

func TestAdvance_RetryBudgetExhausted_FailsPermanently(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusFailed)
	tx.RetryCount = 3
	f.mtn.RequestError = networkError()

	result, err := f.engine.Advance(context.Background(), contextOf(tx, true, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.ErrorCode != domain.CodeMaxRetriesExceeded {
		t.Errorf("expected MAX_RETRIES_EXCEEDED, got %s", result.ErrorCode)
	}
	if result.RetryRecommended {
		t.Error("expected no further retries")
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusFailed || stored.FailureReason != domain.CodeMaxRetriesExceeded {
		t.Errorf("expected failed/MAX_RETRIES_EXCEEDED, got %s/%s", stored.Status, stored.FailureReason)
	}
	if stored.RetryCount != 3 {
		t.Errorf("expected retry count to stay at 3, got %d", stored.RetryCount)
	}
	if len(f.queue.TasksOfKind(redis.TaskRetry)) != 0 {
		t.Error("expected no retry task after budget exhaustion")
	}

	events := f.notifier.Events()
	if len(events) != 1 || events[0] != service.EventPaymentFailed {
		t.Errorf("expected failure notification, got %v", events)
	}
}

func TestAdvance_RetryTask_ReentersProcessing(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusFailed)
	tx.RetryCount = 1
	tx.FailureReason = domain.CodeNetworkError

	result, err := f.engine.Advance(context.Background(), contextOf(tx, true, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Success {
		t.Error("expected the retry to succeed")
	}
	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusProcessing {
		t.Errorf("expected processing after successful retry, got %s", stored.Status)
	}
}

func TestAdvance_StaleFailedWithoutRetryFlag_NoOp(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusFailed)

	result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Status != domain.StatusFailed {
		t.Errorf("expected failed, got %s", result.Status)
	}
	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusFailed {
		t.Errorf("expected transaction to stay failed, got %s", stored.Status)
	}
}

func TestAdvance_Downtime_SchedulesDelayedRetry(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)
	f.mtn.RequestError = downtimeError()

	result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.ErrorCode != domain.CodeProviderDowntime {
		t.Errorf("expected PROVIDER_DOWNTIME, got %s", result.ErrorCode)
	}
	if !result.RetryRecommended {
		t.Error("expected retry to be recommended")
	}

	// The provider is flagged unavailable for new submissions.
	available, _ := f.cache.IsProviderAvailable(context.Background(), domain.ProviderMTN)
	if available {
		t.Error("expected MTN to be flagged unavailable")
	}

	// An MTN wallet number fails Airtel validation, so no failover happens.
	if f.repo.GetTransaction(tx.ID).Provider != domain.ProviderMTN {
		t.Error("expected the transaction to stay on MTN")
	}

	retries := f.queue.TasksOfKind(redis.TaskRetry)
	if len(retries) != 1 {
		t.Fatalf("expected 1 delayed retry, got %d", len(retries))
	}
	if !retries[0].DowntimeRetry {
		t.Error("expected the retry to be marked as a downtime retry")
	}
	if got := retries[0].RunAt.Sub(retries[0].EnqueuedAt); got != f.cfg.DowntimeRetryDelay {
		t.Errorf("expected delay %s, got %s", f.cfg.DowntimeRetryDelay, got)
	}
}

func TestAdvance_Downtime_FailsOverToAlternate(t *testing.T) {
	t.Parallel()

	f := newFixture()
	// An Airtel wallet number submitted through MTN: downtime on MTN makes
	// the alternate eligible.
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)
	tx.Metadata["phone_number"] = airtelPhone
	f.mtn.RequestError = downtimeError()

	result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if !result.Success {
		t.Fatal("expected failover dispatch to succeed")
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Provider != domain.ProviderAirtel {
		t.Errorf("expected provider to switch to Airtel, got %s", stored.Provider)
	}
	if stored.Status != domain.StatusProcessing {
		t.Errorf("expected processing, got %s", stored.Status)
	}
	if len(f.queue.TasksOfKind(redis.TaskRetry)) != 0 {
		t.Error("expected no delayed retry after a successful failover")
	}
}

func TestAdvance_FailedFailover_StaysOnOriginalProvider(t *testing.T) {
	t.Parallel()

	f := newFixture()
	// An Airtel-eligible number on MTN, with both providers down: the
	// failover attempt fails, and the delayed retry must target the
	// original provider.
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)
	tx.Metadata["phone_number"] = airtelPhone
	f.mtn.RequestError = downtimeError()
	f.airtel.RequestError = downtimeError()

	result, err := f.engine.Advance(context.Background(), contextOf(tx, false, false))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.ErrorCode != domain.CodeProviderDowntime {
		t.Errorf("expected PROVIDER_DOWNTIME, got %s", result.ErrorCode)
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Provider != domain.ProviderMTN {
		t.Errorf("expected the transaction to stay on MTN, got %s", stored.Provider)
	}

	retries := f.queue.TasksOfKind(redis.TaskRetry)
	if len(retries) != 1 || !retries[0].DowntimeRetry {
		t.Fatalf("expected 1 downtime retry, got %v", retries)
	}
}

func TestAdvance_DowntimeOnDelayedRetry_FailsPermanently(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusFailed)
	tx.FailureReason = domain.CodeProviderDowntime
	f.mtn.RequestError = downtimeError()

	result, err := f.engine.Advance(context.Background(), contextOf(tx, true, true))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.ErrorCode != domain.CodeProviderDowntime {
		t.Errorf("expected PROVIDER_DOWNTIME, got %s", result.ErrorCode)
	}
	if result.RetryRecommended {
		t.Error("expected no further retries")
	}

	stored := f.repo.GetTransaction(tx.ID)
	if stored.Status != domain.StatusFailed || stored.FailureReason != domain.CodeProviderDowntime {
		t.Errorf("expected failed/PROVIDER_DOWNTIME, got %s/%s", stored.Status, stored.FailureReason)
	}
	if len(f.queue.TasksOfKind(redis.TaskRetry)) != 0 {
		t.Error("expected no second downtime retry")
	}
}

func TestWorker_ExecutesDueProcessTask(t *testing.T) {
	t.Parallel()

	f := newFixture()
	tx := f.seedTransaction(domain.ProviderMTN, domain.StatusPending)
	task := redis.NewTask(redis.TaskProcess, tx.ID, 0)
	if err := f.queue.Enqueue(context.Background(), task); err != nil {
		t.Fatal(err)
	}

	worker := service.NewWorker(f.cfg, f.repo, f.queue, f.locks, f.engine)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		stored := f.repo.GetTransaction(tx.ID)
		if stored != nil && stored.Status == domain.StatusProcessing {
			break
		}
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatalf("worker did not process the task, status: %s", f.repo.GetTransaction(tx.ID).Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if f.repo.GetTransaction(tx.ID).ProviderTransactionID == "" {
		t.Error("expected provider reference after processing")
	}
}
