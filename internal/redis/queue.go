package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const taskQueueKey = "payments:tasks"

// TaskKind identifies what a scheduled task should do.
type TaskKind string

const (
	TaskProcess     TaskKind = "process"
	TaskRetry       TaskKind = "retry"
	TaskStatusCheck TaskKind = "status_check"
)

// Task is a durable unit of scheduled work. Tasks live in a Redis sorted
// set scored by their run-at time, so scheduled retries and status checks
// survive a process restart.
type Task struct {
	ID            string    `json:"id"`
	Kind          TaskKind  `json:"kind"`
	TransactionID string    `json:"transaction_id"`
	Attempt       int       `json:"attempt,omitempty"`
	Poll          int       `json:"poll,omitempty"`
	DowntimeRetry bool      `json:"downtime_retry,omitempty"`
	RunAt         time.Time `json:"run_at"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// NewTask builds a task due after the given delay.
func NewTask(kind TaskKind, transactionID string, delay time.Duration) Task {
	now := time.Now()
	return Task{
		ID:            uuid.New().String(),
		Kind:          kind,
		TransactionID: transactionID,
		RunAt:         now.Add(delay),
		EnqueuedAt:    now,
	}
}

// TaskQueue is a durable delayed task queue backed by a Redis sorted set.
type TaskQueue struct {
	client *redis.Client
}

// NewTaskQueue creates a new TaskQueue.
func NewTaskQueue(client *redis.Client) *TaskQueue {
	return &TaskQueue{client: client}
}

// Enqueue schedules a task for execution at its RunAt time.
func (q *TaskQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.client.ZAdd(ctx, taskQueueKey, redis.Z{
		Score:  float64(task.RunAt.Unix()),
		Member: data,
	}).Err()
}

// Claim pops up to limit due tasks. A task is owned by the caller only when
// its removal succeeds, so concurrent workers never claim the same task.
func (q *TaskQueue) Claim(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	members, err := q.client.ZRangeByScore(ctx, taskQueueKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, taskQueueKey, member).Result()
		if err != nil {
			return tasks, err
		}
		if removed == 0 {
			continue // Another worker claimed it first
		}

		var task Task
		if err := json.Unmarshal([]byte(member), &task); err != nil {
			continue // Skip malformed entries
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// Pending returns the number of scheduled tasks.
func (q *TaskQueue) Pending(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, taskQueueKey).Result()
}
