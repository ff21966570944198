package service

import (
	"context"
	"log"
	"time"

	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/config"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/domain"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/redis"
	"github.com/Latjor-Wuon/safeBoda-assign-sub001/internal/repository"
)

// lockTTL bounds how long one attempt may hold a transaction's lock.
const lockTTL = 30 * time.Second

// lockRetryDelay is how far a task is pushed back when another worker
// holds its transaction's lock.
const lockRetryDelay = 5 * time.Second

// Worker polls the durable task queue and executes due tasks on a bounded
// pool. Tasks survive restarts in Redis; a claimed task is owned by
// exactly one worker.
type Worker struct {
	cfg    *config.PaymentConfig
	repo   repository.TransactionRepository
	queue  redis.TaskQueueInterface
	locks  redis.LockStoreInterface
	engine *Engine
}

// NewWorker creates a new task worker.
func NewWorker(
	cfg *config.PaymentConfig,
	repo repository.TransactionRepository,
	queue redis.TaskQueueInterface,
	locks redis.LockStoreInterface,
	engine *Engine,
) *Worker {
	return &Worker{
		cfg:    cfg,
		repo:   repo,
		queue:  queue,
		locks:  locks,
		engine: engine,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.WorkerCount)

	log.Printf("worker: started with %d slots, polling every %s", w.cfg.WorkerCount, w.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopping")
			return
		case <-ticker.C:
			tasks, err := w.queue.Claim(ctx, time.Now(), w.cfg.WorkerCount)
			if err != nil {
				log.Printf("worker: claim failed: %v", err)
				continue
			}

			for _, task := range tasks {
				sem <- struct{}{}
				go func(task redis.Task) {
					defer func() { <-sem }()
					w.execute(ctx, task)
				}(task)
			}
		}
	}
}

// execute runs one claimed task under the transaction's lock.
func (w *Worker) execute(ctx context.Context, task redis.Task) {
	acquired, err := w.locks.AcquireTransactionLock(ctx, task.TransactionID, lockTTL)
	if err != nil {
		log.Printf("worker: lock acquire failed for %s: %v", task.TransactionID, err)
		w.requeue(ctx, task)
		return
	}
	if !acquired {
		w.requeue(ctx, task)
		return
	}
	defer func() {
		if err := w.locks.ReleaseTransactionLock(ctx, task.TransactionID); err != nil {
			log.Printf("worker: lock release failed for %s: %v", task.TransactionID, err)
		}
	}()

	tx, err := w.repo.GetByID(ctx, task.TransactionID)
	if err != nil {
		log.Printf("worker: load failed for task %s (%s): %v", task.ID, task.TransactionID, err)
		return
	}

	switch task.Kind {
	case redis.TaskProcess, redis.TaskRetry:
		pc := &domain.PaymentContext{
			Transaction:   tx,
			RideID:        tx.RideID,
			RetryCount:    tx.RetryCount,
			Metadata:      tx.Metadata,
			IsRetry:       task.Kind == redis.TaskRetry,
			DowntimeRetry: task.DowntimeRetry,
		}
		if _, err := w.engine.Advance(ctx, pc); err != nil {
			log.Printf("worker: advance failed for %s: %v", tx.ID, err)
		}
	case redis.TaskStatusCheck:
		if err := w.engine.ApplyStatusCheck(ctx, tx, task.Poll); err != nil {
			log.Printf("worker: status check failed for %s: %v", tx.ID, err)
		}
	default:
		log.Printf("worker: unknown task kind %q for %s", task.Kind, task.TransactionID)
	}
}

// requeue pushes a task back for another attempt shortly.
func (w *Worker) requeue(ctx context.Context, task redis.Task) {
	task.RunAt = time.Now().Add(lockRetryDelay)
	if err := w.queue.Enqueue(ctx, task); err != nil {
		log.Printf("worker: requeue failed for task %s: %v", task.ID, err)
	}
}
