// Package resource defines the knowledge-base resource model, its
// storage, and the lifecycle service that emits consistency events when
// resources are created, updated, or deleted.
package resource

import "time"

// IngestionStatus tracks the state of a resource's ingestion run.
type IngestionStatus string

// Ingestion states. Completed and Failed are terminal: a run never
// transitions out of them back to Processing within one invocation.
const (
	StatusPending    IngestionStatus = "pending"
	StatusProcessing IngestionStatus = "processing"
	StatusCompleted  IngestionStatus = "completed"
	StatusFailed     IngestionStatus = "failed"
)

// Terminal reports whether the status ends an ingestion run.
func (s IngestionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the state machine permits moving to the
// given status.
func (s IngestionStatus) CanTransition(to IngestionStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Resource is one knowledge-base entry, created in StatusPending when a
// source URL is first registered. Ingestion fields are mutated only by
// the orchestrator.
type Resource struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Source string `json:"source"`

	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Classification string   `json:"classification,omitempty"`

	BodyText    string    `json:"body_text,omitempty"`
	ArchivePath string    `json:"archive_path,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`

	IngestionStatus      IngestionStatus `json:"ingestion_status"`
	IngestionError       string          `json:"ingestion_error,omitempty"`
	IngestionStartedAt   *time.Time      `json:"ingestion_started_at,omitempty"`
	IngestionCompletedAt *time.Time      `json:"ingestion_completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so stores can hand out values without
// aliasing internal state.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := *r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if r.Embedding != nil {
		out.Embedding = append([]float32(nil), r.Embedding...)
	}
	if r.IngestionStartedAt != nil {
		t := *r.IngestionStartedAt
		out.IngestionStartedAt = &t
	}
	if r.IngestionCompletedAt != nil {
		t := *r.IngestionCompletedAt
		out.IngestionCompletedAt = &t
	}
	return &out
}

// contentFields are the content-bearing fields: a change to any of them
// classifies an update as resource.content_changed.
var contentFields = map[string]bool{
	"body_text":    true,
	"archive_path": true,
}

// DiffFields returns the names of fields that differ between two
// revisions, in a fixed order.
func DiffFields(before, after *Resource) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}

	add("title", before.Title != after.Title)
	add("description", before.Description != after.Description)
	add("summary", before.Summary != after.Summary)
	add("tags", !equalStrings(before.Tags, after.Tags))
	add("classification", before.Classification != after.Classification)
	add("body_text", before.BodyText != after.BodyText)
	add("archive_path", before.ArchivePath != after.ArchivePath)
	add("content_hash", before.ContentHash != after.ContentHash)
	add("embedding", !equalFloats(before.Embedding, after.Embedding))
	return changed
}

// HasContentChange reports whether any changed field is content-bearing.
func HasContentChange(fields []string) bool {
	for _, f := range fields {
		if contentFields[f] {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalFloats(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
