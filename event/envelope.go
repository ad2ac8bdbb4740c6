// Package event provides the in-process publish/subscribe core that keeps
// derived artifacts (embeddings, quality scores, search indices, caches)
// eventually consistent with source data. Publishers emit immutable
// envelopes on a Bus; consistency hooks translate them into background
// task dispatches.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Priority is an advisory dispatch priority carried on an envelope.
// It is used by hooks to pick a queue priority for derived work; the bus
// itself never reorders delivery based on it.
type Priority int

// Priority levels, ordered CRITICAL > HIGH > NORMAL > LOW.
const (
	PriorityLow      Priority = 25
	PriorityNormal   Priority = 50
	PriorityHigh     Priority = 75
	PriorityCritical Priority = 100
)

// String returns the level name for logging.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Envelope is an immutable record of a named occurrence. Every field is
// set at emission time; envelopes are never mutated after construction.
type Envelope struct {
	// Name identifies the occurrence using the {entity}.{action}
	// convention, drawn from the closed taxonomy in names.go.
	Name string `json:"name"`

	// Payload carries the event's business data keyed by string.
	// Values must be JSON-serializable.
	Payload map[string]any `json:"payload"`

	// Timestamp is the emission instant, monotonically non-decreasing
	// within a process for history ordering.
	Timestamp time.Time `json:"timestamp"`

	// Priority is the advisory dispatch priority.
	Priority Priority `json:"priority"`

	// CorrelationID threads one event through its resulting hook and
	// task chain in logs. Generated when not supplied.
	CorrelationID string `json:"correlation_id"`
}

// newCorrelationID returns an opaque id unique per envelope.
func newCorrelationID() string {
	return uuid.NewString()
}
