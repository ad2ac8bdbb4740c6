package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ram-tewari/neo-alexandria-sub001/event"
)

// Debounce delays for burst-prone triggers. The bus provides no
// deduplication: if the queue does not collapse duplicate delayed jobs,
// the downstream tasks must tolerate redundant re-runs.
const (
	embeddingDebounce  = 5 * time.Second
	qualityDebounce    = 10 * time.Second
	searchSyncDelay    = 1 * time.Second
	collectionDebounce = 5 * time.Second
)

// Hooks holds the fixed listener set. Each hook reads one required
// correlation key from the payload, enqueues a task, and isolates its
// own dispatch errors. The table is registered once at process startup
// and never mutated at runtime.
type Hooks struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New creates the hook set over a task dispatcher.
func New(dispatcher Dispatcher, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{dispatcher: dispatcher, logger: logger}
}

// RegisterAll attaches every hook to its trigger event.
func (h *Hooks) RegisterAll(bus *event.Bus) {
	bus.Register(event.ResourceContentChanged, h.regenerateEmbedding)
	bus.Register(event.ResourceMetadataChanged, h.recomputeQuality)
	bus.Register(event.ResourceUpdated, h.syncSearchIndex)
	bus.Register(event.ResourceUpdated, h.invalidateCaches)
	bus.Register(event.ResourceDeleted, h.updateCollectionEmbeddings)
	bus.Register(event.CitationsExtracted, h.updateCitationGraph)
	bus.Register(event.UserInteractionTracked, h.refreshRecommendationProfile)
	bus.Register(event.AuthorsExtracted, h.normalizeAuthorNames)
}

// regenerateEmbedding re-embeds a resource whose content changed,
// debounced to coalesce rapid update bursts.
func (h *Hooks) regenerateEmbedding(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	h.enqueue(ctx, ev, TaskRegenerateEmbedding, []any{id}, QueueHigh, embeddingDebounce)
	return nil
}

// recomputeQuality rescores a resource whose metadata changed.
func (h *Hooks) recomputeQuality(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	h.enqueue(ctx, ev, TaskRecomputeQuality, []any{id}, QueueNormal, qualityDebounce)
	return nil
}

// syncSearchIndex keeps the search index aligned with any update.
func (h *Hooks) syncSearchIndex(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	h.enqueue(ctx, ev, TaskSyncSearchIndex, []any{id}, QueueUrgent, searchSyncDelay)
	return nil
}

// invalidateCaches drops every cache entry derived from the resource,
// immediately.
func (h *Hooks) invalidateCaches(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	keys := []any{
		fmt.Sprintf("embedding:%s", id),
		fmt.Sprintf("quality:%s", id),
		fmt.Sprintf("resource:%s", id),
		"search_query:*",
	}
	h.enqueue(ctx, ev, TaskInvalidateCaches, keys, QueueUrgent, 0)
	return nil
}

// updateCollectionEmbeddings refreshes collections that referenced a
// deleted resource.
func (h *Hooks) updateCollectionEmbeddings(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	h.enqueue(ctx, ev, TaskUpdateCollectionEmbeddings, []any{id}, QueueNormal, collectionDebounce)
	return nil
}

// updateCitationGraph rebuilds citation edges, then invalidates graph
// caches. The cache invalidation is chained: it is only enqueued once
// the edge update was accepted by the queue.
func (h *Hooks) updateCitationGraph(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	if !h.enqueue(ctx, ev, TaskUpdateCitationGraph, []any{id}, QueueUrgent, 0) {
		return nil
	}
	h.enqueue(ctx, ev, TaskInvalidateGraphCaches, []any{id}, QueueUrgent, 0)
	return nil
}

// refreshRecommendationProfile refreshes a user's recommendation
// profile after an interaction.
func (h *Hooks) refreshRecommendationProfile(ctx context.Context, ev event.Envelope) error {
	userID, ok := h.requireString(ev, "user_id")
	if !ok {
		return nil
	}
	h.enqueue(ctx, ev, TaskRefreshRecommendationProfile, []any{userID}, QueueLow, 0)
	return nil
}

// normalizeAuthorNames canonicalizes freshly extracted author names.
func (h *Hooks) normalizeAuthorNames(ctx context.Context, ev event.Envelope) error {
	id, ok := h.requireString(ev, "resource_id")
	if !ok {
		return nil
	}
	h.enqueue(ctx, ev, TaskNormalizeAuthorNames, []any{id}, QueueNormal, 0)
	return nil
}

// requireString extracts a required payload key. A missing or non-string
// value is logged and skipped, never raised.
func (h *Hooks) requireString(ev event.Envelope, key string) (string, bool) {
	v, ok := ev.Payload[key]
	if !ok {
		h.logger.Warn("event payload missing required key, skipping hook",
			"event", ev.Name,
			"key", key,
			"correlation_id", ev.CorrelationID)
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		h.logger.Warn("event payload key is not a usable string, skipping hook",
			"event", ev.Name,
			"key", key,
			"correlation_id", ev.CorrelationID)
		return "", false
	}
	return s, true
}

// enqueue dispatches a task, isolating queue errors. Reports whether
// the dispatch was accepted so chained hooks can stop on failure.
func (h *Hooks) enqueue(ctx context.Context, ev event.Envelope, taskID string, args []any, priority int, delay time.Duration) bool {
	if err := h.dispatcher.Enqueue(ctx, taskID, args, priority, delay); err != nil {
		h.logger.Error("task dispatch failed",
			"task", taskID,
			"event", ev.Name,
			"correlation_id", ev.CorrelationID,
			"error", err)
		return false
	}
	h.logger.Debug("task dispatched",
		"task", taskID,
		"event", ev.Name,
		"priority", priority,
		"delay", delay,
		"correlation_id", ev.CorrelationID)
	return true
}
