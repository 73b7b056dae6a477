// Package handler implements the queue task handlers that drive the indexing
// pipeline: repository acquisition, snippet extraction, embedding and
// enrichment. Each handler executes one task operation against a payload.
package handler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/kodit-ai/kodit/application/service"
	"github.com/kodit-ai/kodit/domain/task"
	"github.com/kodit-ai/kodit/infrastructure/tracking"
)

// ErrMissingPayloadField indicates a task payload lacks a required field.
var ErrMissingPayloadField = errors.New("missing payload field")

// TrackerFactory builds progress trackers with a shared subscriber set, so
// every handler reports through the same reporters.
type TrackerFactory struct {
	logger    *slog.Logger
	reporters []tracking.Reporter
}

// NewTrackerFactory creates a TrackerFactory.
func NewTrackerFactory(logger *slog.Logger, reporters ...tracking.Reporter) *TrackerFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackerFactory{logger: logger, reporters: reporters}
}

// Tracker creates a root tracker for an operation with all reporters
// subscribed.
func (f *TrackerFactory) Tracker(operation task.Operation, trackableType task.TrackableType, trackableID int64) *tracking.Tracker {
	t := tracking.TrackerForOperation(operation, f.logger, trackableType, trackableID)
	for _, r := range f.reporters {
		t.Subscribe(r)
	}
	return t
}

// ForOperation implements service.WorkerTrackerFactory.
func (f *TrackerFactory) ForOperation(operation task.Operation, trackableType task.TrackableType, trackableID int64) service.WorkerTracker {
	return f.Tracker(operation, trackableType, trackableID)
}

func repositoryIDFromPayload(payload map[string]any) (int64, error) {
	return int64Field(payload, "repository_id")
}

func commitIDFromPayload(payload map[string]any) (int64, error) {
	return int64Field(payload, "commit_id")
}

// int64Field reads an integer payload value, tolerating the float64 form a
// JSON round-trip through the task store produces.
func int64Field(payload map[string]any, key string) (int64, error) {
	switch v := payload[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingPayloadField, key)
}
