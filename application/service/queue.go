// Package service orchestrates the domain: queueing, the worker loop,
// indexing and retrieval.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/internal/database"
)

// TaskStore is the durable queue the services enqueue into and the worker
// claims from.
type TaskStore interface {
	Save(ctx context.Context, t task.Task) (task.Task, error)
	SaveBulk(ctx context.Context, tasks []task.Task) error
	Dequeue(ctx context.Context) (task.Task, bool, error)
	PendingCounts(ctx context.Context) (map[task.Operation]int64, error)
	Count(ctx context.Context, options ...database.Option) (int64, error)
	Find(ctx context.Context, options ...database.Option) ([]task.Task, error)
}

// Queue enqueues work into the durable task queue.
type Queue struct {
	store  TaskStore
	logger *slog.Logger
}

// NewQueue creates a Queue.
func NewQueue(store TaskStore, logger *slog.Logger) *Queue {
	return &Queue{store: store, logger: logger}
}

// Enqueue adds a task, refreshing priority and payload when a task with the
// same dedup key is already pending.
func (q *Queue) Enqueue(ctx context.Context, t task.Task) error {
	if _, err := q.store.Save(ctx, t); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	q.logger.Debug("task enqueued",
		slog.String("dedup_key", t.DedupKey()),
		slog.String("operation", t.Operation().String()),
	)
	return nil
}

// EnqueueAll adds a batch of tasks in one statement.
func (q *Queue) EnqueueAll(ctx context.Context, tasks []task.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := q.store.SaveBulk(ctx, tasks); err != nil {
		return fmt.Errorf("enqueue batch: %w", err)
	}
	q.logger.Debug("tasks enqueued", slog.Int("count", len(tasks)))
	return nil
}

// PendingCounts returns the number of pending tasks per operation.
func (q *Queue) PendingCounts(ctx context.Context) (map[task.Operation]int64, error) {
	return q.store.PendingCounts(ctx)
}
