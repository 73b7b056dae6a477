// Package tracking reports step progress to subscribers while tasks run.
package tracking

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kodit-ai/kodit/domain/task"
)

// Reporter receives status change notifications.
type Reporter interface {
	OnChange(ctx context.Context, status task.Status) error
}

// Tracker wraps a Status and pushes every state change to its subscribers.
// A tracker owns one node of the step tree; Step spawns child trackers that
// share the subscriber list.
type Tracker struct {
	mu          sync.RWMutex
	status      task.Status
	subscribers []Reporter
	logger      *slog.Logger
}

// NewTracker creates a tracker around an existing Status.
func NewTracker(status task.Status, logger *slog.Logger) *Tracker {
	return &Tracker{status: status, logger: logger}
}

// TrackerForOperation creates a root tracker for an operation bound to a
// trackable entity.
func TrackerForOperation(operation task.Operation, logger *slog.Logger, trackableType task.TrackableType, trackableID int64) *Tracker {
	return NewTracker(task.NewStatus(operation, "", nil, trackableType, trackableID), logger)
}

// Status returns a copy of the current status.
func (t *Tracker) Status() task.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Subscribe registers a reporter for future changes.
func (t *Tracker) Subscribe(reporter Reporter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, reporter)
}

// SetTotal sets the progress denominator.
func (t *Tracker) SetTotal(ctx context.Context, total int) {
	t.apply(ctx, func(s task.Status) task.Status { return s.SetTotal(total) })
}

// Advance moves progress to current with an optional message.
func (t *Tracker) Advance(ctx context.Context, current int, message string) {
	t.apply(ctx, func(s task.Status) task.Status { return s.Advance(current, message) })
}

// Complete marks the step completed.
func (t *Tracker) Complete(ctx context.Context) {
	t.apply(ctx, task.Status.Complete)
}

// Fail marks the step failed.
func (t *Tracker) Fail(ctx context.Context, errMsg string) {
	t.apply(ctx, func(s task.Status) task.Status { return s.Fail(errMsg) })
}

// Skip marks the step skipped.
func (t *Tracker) Skip(ctx context.Context, reason string) {
	t.apply(ctx, func(s task.Status) task.Status { return s.Skip(reason) })
}

// Step creates a child tracker for a named sub-step of the same operation.
// The child inherits the subscribers and trackable binding.
func (t *Tracker) Step(step string) *Tracker {
	t.mu.RLock()
	parent := t.status
	subscribers := make([]Reporter, len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.RUnlock()

	child := task.NewStatus(parent.Operation(), step, &parent, parent.TrackableType(), parent.TrackableID())
	return &Tracker{status: child, subscribers: subscribers, logger: t.logger}
}

// Notify pushes the current status to all subscribers without changing it.
// Useful right after creation to announce the step.
func (t *Tracker) Notify(ctx context.Context) {
	t.mu.RLock()
	status := t.status
	t.mu.RUnlock()
	t.notify(ctx, status)
}

func (t *Tracker) apply(ctx context.Context, fn func(task.Status) task.Status) {
	t.mu.Lock()
	t.status = fn(t.status)
	status := t.status
	t.mu.Unlock()
	t.notify(ctx, status)
}

func (t *Tracker) notify(ctx context.Context, status task.Status) {
	t.mu.RLock()
	subscribers := make([]Reporter, len(t.subscribers))
	copy(subscribers, t.subscribers)
	t.mu.RUnlock()

	for _, subscriber := range subscribers {
		if err := subscriber.OnChange(ctx, status); err != nil && t.logger != nil {
			t.logger.Error("status reporter failed",
				slog.String("error", err.Error()),
				slog.String("status_id", status.ID()),
			)
		}
	}
}
