package hooks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ram-tewari/neo-alexandria-sub001/event"
)

// fakeDispatcher records enqueue calls and can simulate queue failures.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []enqueueCall
	fail  map[string]error
}

type enqueueCall struct {
	task     string
	args     []any
	priority int
	delay    time.Duration
}

func (d *fakeDispatcher) Enqueue(ctx context.Context, taskID string, args []any, priority int, delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[taskID]; err != nil {
		return err
	}
	d.calls = append(d.calls, enqueueCall{task: taskID, args: args, priority: priority, delay: delay})
	return nil
}

func (d *fakeDispatcher) recorded() []enqueueCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]enqueueCall(nil), d.calls...)
}

func setup(t *testing.T) (*event.Bus, *fakeDispatcher) {
	t.Helper()
	bus := event.NewBus()
	dispatcher := &fakeDispatcher{fail: make(map[string]error)}
	New(dispatcher, nil).RegisterAll(bus)
	return bus, dispatcher
}

func TestContentChangedRegeneratesEmbedding(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.ResourceContentChanged,
		map[string]any{"resource_id": "R1"}, event.PriorityHigh)

	calls := dispatcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskRegenerateEmbedding, calls[0].task)
	assert.Equal(t, []any{"R1"}, calls[0].args)
	assert.Equal(t, QueueHigh, calls[0].priority)
	assert.Equal(t, 5*time.Second, calls[0].delay)
}

func TestMetadataChangedRecomputesQuality(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.ResourceMetadataChanged,
		map[string]any{"resource_id": "R1"}, event.PriorityNormal)

	calls := dispatcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskRecomputeQuality, calls[0].task)
	assert.Equal(t, QueueNormal, calls[0].priority)
	assert.Equal(t, 10*time.Second, calls[0].delay)
}

func TestUpdatedSyncsSearchAndInvalidatesCaches(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.ResourceUpdated,
		map[string]any{"resource_id": "R1", "changed_fields": []string{"title"}}, event.PriorityHigh)

	calls := dispatcher.recorded()
	require.Len(t, calls, 2)

	assert.Equal(t, TaskSyncSearchIndex, calls[0].task)
	assert.Equal(t, []any{"R1"}, calls[0].args)
	assert.Equal(t, QueueUrgent, calls[0].priority)
	assert.Equal(t, time.Second, calls[0].delay)

	assert.Equal(t, TaskInvalidateCaches, calls[1].task)
	assert.Equal(t, QueueUrgent, calls[1].priority)
	assert.Equal(t, time.Duration(0), calls[1].delay)
	assert.Equal(t, []any{"embedding:R1", "quality:R1", "resource:R1", "search_query:*"}, calls[1].args)
}

func TestDeletedUpdatesCollections(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.ResourceDeleted,
		map[string]any{"resource_id": "R1", "title": "T"}, event.PriorityHigh)

	calls := dispatcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskUpdateCollectionEmbeddings, calls[0].task)
	assert.Equal(t, QueueNormal, calls[0].priority)
	assert.Equal(t, 5*time.Second, calls[0].delay)
}

func TestCitationsChainGraphThenCaches(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.CitationsExtracted,
		map[string]any{"resource_id": "R1", "citations": []string{"https://a"}}, event.PriorityNormal)

	calls := dispatcher.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, TaskUpdateCitationGraph, calls[0].task)
	assert.Equal(t, TaskInvalidateGraphCaches, calls[1].task)
	for _, c := range calls {
		assert.Equal(t, QueueUrgent, c.priority)
		assert.Equal(t, time.Duration(0), c.delay)
	}
}

func TestCitationsChainStopsWhenFirstDispatchFails(t *testing.T) {
	bus, dispatcher := setup(t)
	dispatcher.fail[TaskUpdateCitationGraph] = fmt.Errorf("queue down")

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), event.CitationsExtracted,
			map[string]any{"resource_id": "R1"}, event.PriorityNormal)
	})

	assert.Empty(t, dispatcher.recorded())
}

func TestInteractionRefreshesProfile(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.UserInteractionTracked,
		map[string]any{"user_id": "U1", "resource_id": "R1", "type": "view"}, event.PriorityLow)

	calls := dispatcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskRefreshRecommendationProfile, calls[0].task)
	assert.Equal(t, []any{"U1"}, calls[0].args)
	assert.Equal(t, QueueLow, calls[0].priority)
}

func TestAuthorsExtractedNormalizesNames(t *testing.T) {
	bus, dispatcher := setup(t)

	bus.Emit(context.Background(), event.AuthorsExtracted,
		map[string]any{"resource_id": "R1", "authors": []string{"J. Doe"}}, event.PriorityNormal)

	calls := dispatcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskNormalizeAuthorNames, calls[0].task)
	assert.Equal(t, QueueNormal, calls[0].priority)
}

func TestMissingCorrelationKeySkipsDispatch(t *testing.T) {
	bus, dispatcher := setup(t)

	// No resource_id in any payload: every hook logs and declines.
	bus.Emit(context.Background(), event.ResourceContentChanged,
		map[string]any{"other": "x"}, event.PriorityHigh)
	bus.Emit(context.Background(), event.ResourceUpdated, nil, event.PriorityHigh)
	bus.Emit(context.Background(), event.UserInteractionTracked,
		map[string]any{"resource_id": "R1"}, event.PriorityLow)

	assert.Empty(t, dispatcher.recorded())
}

func TestDispatchErrorIsIsolated(t *testing.T) {
	bus, dispatcher := setup(t)
	dispatcher.fail[TaskSyncSearchIndex] = fmt.Errorf("queue down")

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), event.ResourceUpdated,
			map[string]any{"resource_id": "R1"}, event.PriorityHigh)
	})

	// The cache invalidation still went through.
	calls := dispatcher.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, TaskInvalidateCaches, calls[0].task)
}
