package tracking

import (
	"context"
	"log/slog"

	"github.com/kodit-ai/kodit/domain/task"
)

// LoggingReporter writes status changes to a structured logger.
type LoggingReporter struct {
	logger *slog.Logger
}

// NewLoggingReporter creates a LoggingReporter.
func NewLoggingReporter(logger *slog.Logger) *LoggingReporter {
	return &LoggingReporter{logger: logger}
}

// OnChange logs the change, failures at error level.
func (r *LoggingReporter) OnChange(_ context.Context, status task.Status) error {
	attrs := []any{
		slog.String("state", string(status.State())),
		slog.Float64("completion_percent", status.CompletionPercent()),
	}
	if status.Message() != "" {
		attrs = append(attrs, slog.String("message", status.Message()))
	}

	if status.State() == task.StateFailed {
		attrs = append(attrs, slog.String("error", status.Error()))
		r.logger.Error(status.ID(), attrs...)
		return nil
	}
	r.logger.Info(status.ID(), attrs...)
	return nil
}
