package tracking

import (
	"context"
	"fmt"

	"github.com/kodit-ai/kodit/domain/task"
)

// StatusWriter persists step statuses. Implemented by the persistence layer.
type StatusWriter interface {
	SaveStatus(ctx context.Context, status task.Status) error
}

// PersistingReporter writes every status change through a StatusWriter so
// progress survives restarts and is visible over the API.
type PersistingReporter struct {
	writer StatusWriter
}

// NewPersistingReporter creates a PersistingReporter.
func NewPersistingReporter(writer StatusWriter) *PersistingReporter {
	return &PersistingReporter{writer: writer}
}

// OnChange upserts the status row.
func (r *PersistingReporter) OnChange(ctx context.Context, status task.Status) error {
	if err := r.writer.SaveStatus(ctx, status); err != nil {
		return fmt.Errorf("persist status %s: %w", status.ID(), err)
	}
	return nil
}
