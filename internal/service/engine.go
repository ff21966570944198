package service

import (
	"context"
	"log"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/provider"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
)

// adapterEstimate is the completion estimate attached once a provider has
// acknowledged a payment request.
const adapterEstimate = 2 * time.Minute

// Engine drives a transaction through its status graph. Every persisted
// transition goes through the guarded repository update, so concurrent
// webhooks, status checks and retries cannot move a transaction out of a
// terminal state or double-apply side effects.
type Engine struct {
	cfg         *config.PaymentConfig
	repo        repository.TransactionRepository
	registry    *provider.Registry
	cache       redis.CacheStoreInterface
	locks       redis.LockStoreInterface
	queue       redis.TaskQueueInterface
	broadcaster redis.BroadcasterInterface
	notifier    NotificationSink
	analytics   EventSink
	alerter     Alerter
}

// NewEngine creates a new payment engine.
func NewEngine(
	cfg *config.PaymentConfig,
	repo repository.TransactionRepository,
	registry *provider.Registry,
	cache redis.CacheStoreInterface,
	locks redis.LockStoreInterface,
	queue redis.TaskQueueInterface,
	broadcaster redis.BroadcasterInterface,
	notifier NotificationSink,
	analytics EventSink,
	alerter Alerter,
) *Engine {
	return &Engine{
		cfg:         cfg,
		repo:        repo,
		registry:    registry,
		cache:       cache,
		locks:       locks,
		queue:       queue,
		broadcaster: broadcaster,
		notifier:    notifier,
		analytics:   analytics,
		alerter:     alerter,
	}
}

// Advance executes one processing attempt for the transaction in pc.
// It is safe to call with a stale context: terminal transactions are left
// untouched and reported as-is.
func (e *Engine) Advance(ctx context.Context, pc *domain.PaymentContext) (*domain.PaymentResult, error) {
	tx := pc.Transaction

	if tx.Status.Terminal() {
		return e.currentResult(tx), nil
	}

	// A scheduler retry is the only path that re-enters processing from
	// failed. Anything else arriving at a failed transaction is stale.
	if tx.Status == domain.StatusFailed {
		if !pc.IsRetry {
			return e.currentResult(tx), nil
		}
		if stale, err := e.transition(ctx, tx, domain.StatusProcessing, "", nil, ""); err != nil {
			return nil, err
		} else if stale {
			return e.currentResult(tx), nil
		}
	}

	if tx.Provider == domain.ProviderCash {
		return e.complete(ctx, tx, "")
	}

	if tx.Status == domain.StatusPending {
		if stale, err := e.transition(ctx, tx, domain.StatusProcessing, "", nil, ""); err != nil {
			return nil, err
		} else if stale {
			return e.currentResult(tx), nil
		}
	}

	gw, ok := e.registry.Get(tx.Provider)
	if !ok {
		return e.failTerminal(ctx, tx, domain.CodeProviderUnavailable, "no gateway registered")
	}

	res, err := gw.RequestPayment(ctx, tx.PhoneNumber(), tx.Amount, tx.ID, tx.Description)
	if err != nil {
		return e.routeFailure(ctx, pc, err)
	}

	return e.acknowledge(ctx, tx, res.ProviderTransactionID)
}

// acknowledge records a provider acceptance and schedules the first
// status check.
func (e *Engine) acknowledge(ctx context.Context, tx *domain.Transaction, ref string) (*domain.PaymentResult, error) {
	if err := e.repo.SetProviderReference(ctx, tx.ID, ref); err != nil {
		return nil, err
	}
	tx.ProviderTransactionID = ref

	check := redis.NewTask(redis.TaskStatusCheck, tx.ID, e.cfg.StatusCheckDelay)
	check.Poll = 1
	if err := e.queue.Enqueue(ctx, check); err != nil {
		log.Printf("engine: failed to schedule status check for %s: %v", tx.ID, err)
	}

	e.refreshCache(ctx, tx)

	return &domain.PaymentResult{
		Success:             true,
		TransactionID:       tx.ID,
		ProviderReference:   ref,
		Status:              tx.Status,
		EstimatedCompletion: time.Now().Add(adapterEstimate),
	}, nil
}

// routeFailure dispatches a gateway failure to the handler for its kind.
func (e *Engine) routeFailure(ctx context.Context, pc *domain.PaymentContext, gwErr error) (*domain.PaymentResult, error) {
	switch provider.KindOf(gwErr) {
	case provider.FailureNetwork:
		return e.handleNetwork(ctx, pc, gwErr)
	case provider.FailureInsufficientFunds:
		return e.handleRejection(ctx, pc.Transaction, domain.CodeInsufficientFunds, EventInsufficientFunds)
	case provider.FailureInvalidAccount:
		return e.handleRejection(ctx, pc.Transaction, domain.CodeInvalidAccount, EventInvalidAccount)
	case provider.FailureProviderDown:
		return e.handleDowntime(ctx, pc)
	default:
		return e.handleUnexpected(ctx, pc.Transaction, gwErr)
	}
}

// handleNetwork schedules an exponential-backoff retry until the retry
// budget is exhausted.
func (e *Engine) handleNetwork(ctx context.Context, pc *domain.PaymentContext, gwErr error) (*domain.PaymentResult, error) {
	tx := pc.Transaction

	if tx.RetryCount >= e.cfg.MaxRetries {
		return e.failTerminal(ctx, tx, domain.CodeMaxRetriesExceeded, gwErr.Error())
	}

	count, err := e.repo.IncrementRetryCount(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.RetryCount = count

	delay := e.cfg.RetryBaseDelay * (1 << (count - 1))

	// The failure is retryable, so the payer is not notified yet.
	if stale, err := e.transition(ctx, tx, domain.StatusFailed, domain.CodeNetworkError, nil, ""); err != nil {
		return nil, err
	} else if stale {
		return e.currentResult(tx), nil
	}

	retry := redis.NewTask(redis.TaskRetry, tx.ID, delay)
	retry.Attempt = count
	if err := e.queue.Enqueue(ctx, retry); err != nil {
		return nil, err
	}

	return &domain.PaymentResult{
		TransactionID:    tx.ID,
		Status:           tx.Status,
		ErrorMessage:     gwErr.Error(),
		ErrorCode:        domain.CodeNetworkError,
		RetryRecommended: true,
	}, nil
}

// handleRejection records a non-retryable provider rejection and notifies
// the payer.
func (e *Engine) handleRejection(ctx context.Context, tx *domain.Transaction, code, event string) (*domain.PaymentResult, error) {
	if stale, err := e.transition(ctx, tx, domain.StatusFailed, code, nil, event); err != nil {
		return nil, err
	} else if stale {
		return e.currentResult(tx), nil
	}

	return &domain.PaymentResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		ErrorCode:     code,
		ErrorMessage:  tx.FailureReason,
	}, nil
}

// handleDowntime flags the provider unavailable, attempts a failover to an
// alternate provider, and otherwise schedules a single delayed retry. A
// downtime failure on that delayed retry is terminal.
func (e *Engine) handleDowntime(ctx context.Context, pc *domain.PaymentContext) (*domain.PaymentResult, error) {
	tx := pc.Transaction

	if err := e.cache.SetProviderAvailable(ctx, tx.Provider, false); err != nil {
		log.Printf("engine: failed to flag %s unavailable: %v", tx.Provider, err)
	}

	if pc.DowntimeRetry {
		return e.failTerminal(ctx, tx, domain.CodeProviderDowntime, "provider still unavailable after delayed retry")
	}

	if result, ok := e.tryFailover(ctx, tx); ok {
		return result, nil
	}

	if stale, err := e.transition(ctx, tx, domain.StatusFailed, domain.CodeProviderDowntime, nil, ""); err != nil {
		return nil, err
	} else if stale {
		return e.currentResult(tx), nil
	}

	retry := redis.NewTask(redis.TaskRetry, tx.ID, e.cfg.DowntimeRetryDelay)
	retry.DowntimeRetry = true
	if err := e.queue.Enqueue(ctx, retry); err != nil {
		return nil, err
	}

	return &domain.PaymentResult{
		TransactionID:    tx.ID,
		Status:           tx.Status,
		ErrorCode:        domain.CodeProviderDowntime,
		ErrorMessage:     "provider temporarily unavailable",
		RetryRecommended: true,
	}, nil
}

// tryFailover dispatches the payment to the first eligible alternate
// provider. The wallet number must be valid on the alternate's numbering
// plan, which is rarely the case, so failover mostly falls through to the
// delayed retry.
func (e *Engine) tryFailover(ctx context.Context, tx *domain.Transaction) (*domain.PaymentResult, bool) {
	for _, alt := range e.registry.Alternates(tx.Provider) {
		available, err := e.cache.IsProviderAvailable(ctx, alt)
		if err != nil || !available {
			continue
		}

		gw, ok := e.registry.Get(alt)
		if !ok || !gw.ValidatePhoneNumber(tx.PhoneNumber()) {
			continue
		}

		res, err := gw.RequestPayment(ctx, tx.PhoneNumber(), tx.Amount, tx.ID, tx.Description)
		if err != nil {
			// One failover attempt only; a failed failover falls back to
			// the delayed retry against the original provider.
			return nil, false
		}

		// The provider switch is persisted only once the alternate has
		// accepted, so a delayed retry stays on the original provider.
		if err := e.repo.SetProvider(ctx, tx.ID, alt); err != nil {
			log.Printf("engine: failover provider update failed for %s: %v", tx.ID, err)
			return nil, false
		}
		tx.Provider = alt

		result, err := e.acknowledge(ctx, tx, res.ProviderTransactionID)
		if err != nil {
			log.Printf("engine: failover acknowledge failed for %s: %v", tx.ID, err)
			return nil, false
		}
		return result, true
	}
	return nil, false
}

// handleUnexpected alerts operators and fails the transaction.
func (e *Engine) handleUnexpected(ctx context.Context, tx *domain.Transaction, gwErr error) (*domain.PaymentResult, error) {
	e.alerter.Alert(ctx, tx, gwErr)
	return e.failTerminal(ctx, tx, domain.CodeSystemError, gwErr.Error())
}

// ApplyStatusCheck polls the provider for a processing transaction and
// applies the reported outcome. While the provider reports PENDING the
// check reschedules itself up to the poll cap.
func (e *Engine) ApplyStatusCheck(ctx context.Context, tx *domain.Transaction, poll int) error {
	if tx.Status.Terminal() || tx.ProviderTransactionID == "" {
		return nil
	}

	gw, ok := e.registry.Get(tx.Provider)
	if !ok {
		return nil
	}

	res, err := gw.CheckStatus(ctx, tx.ProviderTransactionID)
	if err != nil {
		log.Printf("engine: status check failed for %s: %v", tx.ID, err)
		return e.reschedulePoll(ctx, tx, poll)
	}

	switch res.Status {
	case provider.StatusSuccessful:
		_, err := e.complete(ctx, tx, "")
		return err
	case provider.StatusFailed:
		code := codeForReason(res.Reason)
		log.Printf("engine: provider reported failure for %s: %s (%s)", tx.ID, code, res.Reason)
		_, err := e.handleRejection(ctx, tx, code, eventForCode(code))
		return err
	default:
		return e.reschedulePoll(ctx, tx, poll)
	}
}

// codeForReason maps a provider-reported failure reason onto the error
// code taxonomy. FailureReason only ever holds enumerated codes; the raw
// provider text is logged at the call site.
func codeForReason(reason string) string {
	switch reason {
	case "NOT_ENOUGH_FUNDS", "PAYER_LIMIT_REACHED", "INSUFFICIENT_FUNDS":
		return domain.CodeInsufficientFunds
	case "PAYER_NOT_FOUND", "INVALID_MSISDN", "INVALID_ACCOUNT":
		return domain.CodeInvalidAccount
	case "SERVICE_UNAVAILABLE", "INTERNAL_PROCESSING_ERROR", "PROVIDER_DOWNTIME":
		return domain.CodeProviderDowntime
	default:
		return domain.CodeSystemError
	}
}

// eventForCode picks the payer notification for a failure code.
func eventForCode(code string) string {
	switch code {
	case domain.CodeInsufficientFunds:
		return EventInsufficientFunds
	case domain.CodeInvalidAccount:
		return EventInvalidAccount
	default:
		return EventPaymentFailed
	}
}

func (e *Engine) reschedulePoll(ctx context.Context, tx *domain.Transaction, poll int) error {
	if poll >= e.cfg.MaxStatusChecks {
		// Stop polling; the webhook remains the path to a terminal state.
		log.Printf("engine: status check budget exhausted for %s, awaiting callback", tx.ID)
		return nil
	}

	check := redis.NewTask(redis.TaskStatusCheck, tx.ID, e.cfg.StatusCheckDelay)
	check.Poll = poll + 1
	return e.queue.Enqueue(ctx, check)
}

// ApplyProviderStatus applies a provider callback identified by the
// provider's reference. A non-zero amount must match the stored
// transaction. The returned bool reports whether the callback changed
// anything; a false return with a nil error is a stale duplicate.
func (e *Engine) ApplyProviderStatus(ctx context.Context, ref string, status provider.Status, reason string, amount int64) (*domain.Transaction, bool, error) {
	tx, err := e.repo.GetByProviderReference(ctx, ref)
	if err != nil {
		return nil, false, err
	}

	if amount != 0 && amount != tx.Amount {
		log.Printf("engine: callback amount %d does not match transaction %s amount %d", amount, tx.ID, tx.Amount)
		return tx, false, ErrAmountMismatch
	}

	acquired, err := e.locks.AcquireTransactionLock(ctx, tx.ID, lockTTL)
	if err != nil {
		return tx, false, err
	}
	if !acquired {
		return tx, false, ErrTransactionBusy
	}
	defer func() {
		if err := e.locks.ReleaseTransactionLock(ctx, tx.ID); err != nil {
			log.Printf("engine: failed to release lock for %s: %v", tx.ID, err)
		}
	}()

	if tx.Status.Terminal() {
		return tx, false, nil
	}

	switch status {
	case provider.StatusSuccessful:
		if _, err := e.complete(ctx, tx, ""); err != nil {
			return tx, false, err
		}
		return tx, true, nil
	case provider.StatusFailed:
		code := codeForReason(reason)
		log.Printf("engine: provider callback failure for %s: %s (%s)", tx.ID, code, reason)
		if _, err := e.handleRejection(ctx, tx, code, eventForCode(code)); err != nil {
			return tx, false, err
		}
		return tx, true, nil
	default:
		return tx, false, nil
	}
}

// Cancel moves a pending or processing transaction to cancelled.
func (e *Engine) Cancel(ctx context.Context, tx *domain.Transaction) error {
	if tx.Status != domain.StatusPending && tx.Status != domain.StatusProcessing {
		return ErrCannotCancel
	}

	stale, err := e.transition(ctx, tx, domain.StatusCancelled, "", nil, EventPaymentCancelled)
	if err != nil {
		return err
	}
	if stale {
		return ErrCannotCancel
	}
	return nil
}

// complete moves a transaction to completed and stamps its completion time.
func (e *Engine) complete(ctx context.Context, tx *domain.Transaction, ref string) (*domain.PaymentResult, error) {
	if ref != "" {
		if err := e.repo.SetProviderReference(ctx, tx.ID, ref); err != nil {
			return nil, err
		}
		tx.ProviderTransactionID = ref
	}

	now := time.Now()
	if stale, err := e.transition(ctx, tx, domain.StatusCompleted, "", &now, EventPaymentCompleted); err != nil {
		return nil, err
	} else if stale {
		return e.currentResult(tx), nil
	}

	return &domain.PaymentResult{
		Success:           true,
		TransactionID:     tx.ID,
		ProviderReference: tx.ProviderTransactionID,
		Status:            tx.Status,
	}, nil
}

// failTerminal records a non-retryable failure and notifies the payer.
func (e *Engine) failTerminal(ctx context.Context, tx *domain.Transaction, code, detail string) (*domain.PaymentResult, error) {
	if detail != "" {
		log.Printf("engine: transaction %s failed: %s (%s)", tx.ID, code, detail)
	}

	if stale, err := e.transition(ctx, tx, domain.StatusFailed, code, nil, EventPaymentFailed); err != nil {
		return nil, err
	} else if stale {
		return e.currentResult(tx), nil
	}

	return &domain.PaymentResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		ErrorCode:     code,
		ErrorMessage:  detail,
	}, nil
}

// transition applies one guarded status transition and fans out its side
// effects. A true first return means the stored transaction had already
// reached a terminal state, in which case nothing was changed and no side
// effects ran.
func (e *Engine) transition(ctx context.Context, tx *domain.Transaction, to domain.TransactionStatus, failureReason string, completedAt *time.Time, event string) (bool, error) {
	if !domain.CanTransition(tx.Status, to) {
		return true, nil
	}

	err := e.repo.UpdateStatus(ctx, tx.ID, to, failureReason, completedAt)
	if err != nil {
		if err == repository.ErrTerminalState {
			return true, nil
		}
		return false, err
	}

	tx.Status = to
	tx.FailureReason = failureReason
	tx.UpdatedAt = time.Now()
	if completedAt != nil {
		tx.CompletedAt = completedAt
	}

	e.refreshCache(ctx, tx)

	update := redis.StatusUpdate{
		TransactionID: tx.ID,
		RideID:        tx.RideID,
		Status:        string(to),
		Success:       to == domain.StatusCompleted,
		Timestamp:     time.Now(),
	}
	if err := e.broadcaster.Publish(ctx, update); err != nil {
		log.Printf("engine: broadcast failed for %s: %v", tx.ID, err)
	}

	if event != "" {
		e.notifier.Notify(ctx, event, tx)
		e.analytics.Record(ctx, event, tx)
	}

	return false, nil
}

func (e *Engine) refreshCache(ctx context.Context, tx *domain.Transaction) {
	if err := e.cache.SetStatus(ctx, redis.SnapshotOf(tx)); err != nil {
		log.Printf("engine: status cache refresh failed for %s: %v", tx.ID, err)
	}
}

// currentResult reports a transaction's state without changing it.
func (e *Engine) currentResult(tx *domain.Transaction) *domain.PaymentResult {
	return &domain.PaymentResult{
		Success:           tx.Status == domain.StatusCompleted,
		TransactionID:     tx.ID,
		ProviderReference: tx.ProviderTransactionID,
		Status:            tx.Status,
		ErrorCode:         tx.FailureReason,
	}
}
