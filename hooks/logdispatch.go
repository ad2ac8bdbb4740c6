package hooks

import (
	"context"
	"log/slog"
	"time"
)

// LogDispatcher records dispatches in the log instead of a queue. Used
// when no NATS connection is configured, typically one-shot CLI runs.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Enqueue implements Dispatcher.
func (d *LogDispatcher) Enqueue(ctx context.Context, taskID string, args []any, priority int, delay time.Duration) error {
	d.logger.Info("task dispatch (log only)",
		"task", taskID,
		"args", args,
		"priority", priority,
		"delay", delay)
	return nil
}
