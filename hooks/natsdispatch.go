package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// TaskStreamName is the JetStream stream carrying task dispatches.
const TaskStreamName = "ALEXANDRIA_TASKS"

// taskSubjectPrefix prefixes the per-task dispatch subjects.
const taskSubjectPrefix = "tasks.dispatch."

// TaskMessage is the wire form of one dispatch. Workers honor
// DelaySeconds before executing; duplicate delayed jobs may arrive and
// tasks must be idempotent to re-run.
type TaskMessage struct {
	Task         string    `json:"task"`
	Args         []any     `json:"args"`
	Priority     int       `json:"priority"`
	DelaySeconds float64   `json:"delay_seconds"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// NATSDispatcher publishes task dispatches to JetStream, one subject
// per task identifier.
type NATSDispatcher struct {
	js jetstream.JetStream
}

// NewNATSDispatcher ensures the task stream exists and returns a
// dispatcher over it.
func NewNATSDispatcher(ctx context.Context, js jetstream.JetStream) (*NATSDispatcher, error) {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     TaskStreamName,
		Subjects: []string{taskSubjectPrefix + ">"},
		MaxAge:   24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure task stream: %w", err)
	}
	return &NATSDispatcher{js: js}, nil
}

// Enqueue implements Dispatcher.
func (d *NATSDispatcher) Enqueue(ctx context.Context, taskID string, args []any, priority int, delay time.Duration) error {
	msg := TaskMessage{
		Task:         taskID,
		Args:         args,
		Priority:     priority,
		DelaySeconds: delay.Seconds(),
		EnqueuedAt:   time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal task message: %w", err)
	}

	if _, err := d.js.Publish(ctx, taskSubjectPrefix+taskID, data); err != nil {
		return fmt.Errorf("publish task: %w", err)
	}
	return nil
}
