// Package hooks registers the fixed set of event listeners that keep
// derived artifacts consistent with source data. Each hook is a pure
// translation from one event into a prioritized, optionally delayed
// task dispatch; the task queue's execution engine is an external
// collaborator.
package hooks

import (
	"context"
	"time"
)

// Task identifiers understood by the background workers.
const (
	TaskRegenerateEmbedding         = "regenerate_embedding"
	TaskRecomputeQuality            = "recompute_quality"
	TaskSyncSearchIndex             = "sync_search_index"
	TaskInvalidateCaches            = "invalidate_caches"
	TaskUpdateCollectionEmbeddings  = "update_collection_embeddings"
	TaskUpdateCitationGraph         = "update_citation_graph"
	TaskInvalidateGraphCaches       = "invalidate_graph_caches"
	TaskRefreshRecommendationProfile = "refresh_recommendation_profile"
	TaskNormalizeAuthorNames         = "normalize_author_names"
)

// Queue priorities on the task queue's own 0..9 scale, independent of
// event.Priority.
const (
	QueueLow    = 2
	QueueNormal = 5
	QueueHigh   = 7
	QueueUrgent = 9
)

// Dispatcher enqueues background work on the distributed task queue.
// Enqueue failures are reported to the caller; hooks swallow and log
// them so a queue outage never disturbs event delivery.
type Dispatcher interface {
	Enqueue(ctx context.Context, taskID string, args []any, priority int, delay time.Duration) error
}
