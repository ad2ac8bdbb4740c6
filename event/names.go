package event

// System event taxonomy. Event names follow the {entity}.{action}
// convention and form a closed set; publishers and hooks reference these
// constants rather than raw strings.
const (
	// Resource lifecycle.
	ResourceCreated         = "resource.created"
	ResourceUpdated         = "resource.updated"
	ResourceDeleted         = "resource.deleted"
	ResourceContentChanged  = "resource.content_changed"
	ResourceMetadataChanged = "resource.metadata_changed"

	// Ingestion milestones.
	IngestionStarted   = "ingestion.started"
	IngestionCompleted = "ingestion.completed"
	IngestionFailed    = "ingestion.failed"

	// Derived-data extraction.
	CitationsExtracted = "citations.extracted"
	AuthorsExtracted   = "authors.extracted"

	// User activity.
	UserInteractionTracked = "user.interaction_tracked"
)
