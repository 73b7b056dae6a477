// Package task holds the queue and progress-reporting domain types.
package task

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Priority orders the queue; higher values run first. Levels are spaced so
// per-batch offsets never promote one level past the next.
type Priority int

// Priority levels.
const (
	PriorityBackground    Priority = 1000
	PriorityNormal        Priority = 2000
	PriorityUserInitiated Priority = 5000
	PriorityCritical      Priority = 10000
)

// Backoff caps retry delays at five minutes.
const maxBackoff = 300 * time.Second

// Backoff returns the delay before retry number retryCount+1: 5, 10, 20, …
// seconds, capped at 300.
func Backoff(retryCount int) time.Duration {
	d := 5 * time.Second
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Task is a pending row in the durable queue. Existence implies pending;
// there is no status column. A claimed task is deleted, and re-inserted with
// an increased retry count when its handler fails.
type Task struct {
	id          int64
	dedupKey    string
	operation   Operation
	priority    Priority
	payload     map[string]any
	retryCount  int
	nextRetryAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a pending Task. The target scopes the dedup key within the
// operation, typically a repository id, commit SHA, or batch key.
func New(operation Operation, target string, priority Priority, payload map[string]any) Task {
	return Task{
		dedupKey:  DedupKey(operation, target),
		operation: operation,
		priority:  priority,
		payload:   copyPayload(payload),
	}
}

// Reconstruct rebuilds a Task from persistence.
func Reconstruct(
	id int64,
	dedupKey string,
	operation Operation,
	priority Priority,
	payload map[string]any,
	retryCount int,
	nextRetryAt *time.Time,
	createdAt, updatedAt time.Time,
) Task {
	return Task{
		id:          id,
		dedupKey:    dedupKey,
		operation:   operation,
		priority:    priority,
		payload:     copyPayload(payload),
		retryCount:  retryCount,
		nextRetryAt: nextRetryAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// DedupKey builds the type-scoped deduplication key "{operation}:{target}".
func DedupKey(operation Operation, target string) string {
	return fmt.Sprintf("%s:%s", operation, target)
}

// ID returns the row id.
func (t Task) ID() int64 { return t.id }

// DedupKey returns the deduplication key.
func (t Task) DedupKey() string { return t.dedupKey }

// Operation returns the task type.
func (t Task) Operation() Operation { return t.operation }

// Priority returns the queue priority.
func (t Task) Priority() Priority { return t.priority }

// RetryCount returns how many times the task has failed so far.
func (t Task) RetryCount() int { return t.retryCount }

// NextRetryAt returns when the task becomes eligible again, nil for
// immediately.
func (t Task) NextRetryAt() *time.Time { return t.nextRetryAt }

// Eligible reports whether the task may be claimed at the given time.
func (t Task) Eligible(now time.Time) bool {
	return t.nextRetryAt == nil || !t.nextRetryAt.After(now)
}

// Payload returns a copy of the payload map.
func (t Task) Payload() map[string]any { return copyPayload(t.payload) }

// PayloadJSON serialises the payload.
func (t Task) PayloadJSON() ([]byte, error) {
	return json.Marshal(t.payload)
}

// CreatedAt returns the enqueue time.
func (t Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the last modification time.
func (t Task) UpdatedAt() time.Time { return t.updatedAt }

// WithID returns a copy with the row id set.
func (t Task) WithID(id int64) Task {
	t.id = id
	return t
}

// WithPriority returns a copy with the priority replaced.
func (t Task) WithPriority(p Priority) Task {
	t.priority = p
	return t
}

// Retried returns a copy prepared for re-insertion after a failure: retry
// count incremented, next eligibility pushed out by the backoff schedule, and
// identity cleared so the row is inserted fresh.
func (t Task) Retried(now time.Time) Task {
	next := now.Add(Backoff(t.retryCount))
	t.id = 0
	t.retryCount++
	t.nextRetryAt = &next
	return t
}

// RetriesExhausted reports whether the task has used its whole retry budget.
func (t Task) RetriesExhausted() bool {
	return t.retryCount >= t.operation.MaxRetries()
}

func copyPayload(payload map[string]any) map[string]any {
	result := make(map[string]any, len(payload))
	maps.Copy(result, payload)
	return result
}
