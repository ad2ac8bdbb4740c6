package event

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncExecutor runs async handlers inline so tests can assert without
// sleeping.
type syncExecutor struct{}

func (syncExecutor) Go(fn func()) { fn() }

func TestEmitFanOutIsolation(t *testing.T) {
	bus := NewBus()

	var calls []string
	first := func(ctx context.Context, ev Envelope) error {
		calls = append(calls, "first")
		return nil
	}
	failing := func(ctx context.Context, ev Envelope) error {
		calls = append(calls, "failing")
		return fmt.Errorf("boom")
	}
	panicking := func(ctx context.Context, ev Envelope) error {
		calls = append(calls, "panicking")
		panic("kaboom")
	}
	last := func(ctx context.Context, ev Envelope) error {
		calls = append(calls, "last")
		return nil
	}

	bus.Register("resource.updated", first)
	bus.Register("resource.updated", failing)
	bus.Register("resource.updated", panicking)
	bus.Register("resource.updated", last)

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), "resource.updated", map[string]any{"resource_id": "R1"}, PriorityHigh)
	})

	// Every handler ran exactly once, in registration order, despite the
	// error and the panic in the middle.
	assert.Equal(t, []string{"first", "failing", "panicking", "last"}, calls)
}

func TestEmitReturnsEnvelope(t *testing.T) {
	bus := NewBus()

	ev := bus.Emit(context.Background(), "resource.created", map[string]any{"resource_id": "R1"}, PriorityNormal)

	assert.Equal(t, "resource.created", ev.Name)
	assert.Equal(t, PriorityNormal, ev.Priority)
	assert.Equal(t, "R1", ev.Payload["resource_id"])
	assert.NotEmpty(t, ev.CorrelationID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestCorrelationIDsUnique(t *testing.T) {
	bus := NewBus()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ev := bus.Emit(context.Background(), "resource.updated", nil, PriorityNormal)
		assert.False(t, seen[ev.CorrelationID], "duplicate correlation id")
		seen[ev.CorrelationID] = true
	}
}

func TestTimestampsNonDecreasing(t *testing.T) {
	bus := NewBus()

	var prev time.Time
	for i := 0; i < 50; i++ {
		ev := bus.Emit(context.Background(), "resource.updated", nil, PriorityNormal)
		assert.False(t, ev.Timestamp.Before(prev))
		prev = ev.Timestamp
	}
}

func TestDuplicateRegistrationIsNoOp(t *testing.T) {
	bus := NewBus()

	count := 0
	handler := func(ctx context.Context, ev Envelope) error {
		count++
		return nil
	}

	bus.Register("resource.created", handler)
	bus.Register("resource.created", handler)

	bus.Emit(context.Background(), "resource.created", nil, PriorityNormal)

	assert.Equal(t, 1, count)
	assert.Len(t, bus.Listeners("resource.created"), 1)
}

func TestSameHandlerDifferentEvents(t *testing.T) {
	bus := NewBus()

	count := 0
	handler := func(ctx context.Context, ev Envelope) error {
		count++
		return nil
	}

	bus.Register("resource.created", handler)
	bus.Register("resource.updated", handler)

	bus.Emit(context.Background(), "resource.created", nil, PriorityNormal)
	bus.Emit(context.Background(), "resource.updated", nil, PriorityNormal)

	assert.Equal(t, 2, count)
}

func TestUnregister(t *testing.T) {
	bus := NewBus()

	count := 0
	handler := func(ctx context.Context, ev Envelope) error {
		count++
		return nil
	}

	bus.Register("resource.deleted", handler)
	bus.Unregister("resource.deleted", handler)
	// Idempotent when absent.
	bus.Unregister("resource.deleted", handler)

	bus.Emit(context.Background(), "resource.deleted", nil, PriorityHigh)

	assert.Equal(t, 0, count)
	assert.Empty(t, bus.Listeners("resource.deleted"))
}

func TestHistoryBound(t *testing.T) {
	bus := NewBus(WithHistoryCapacity(10))

	for i := 0; i < 25; i++ {
		bus.Emit(context.Background(), "resource.updated", map[string]any{"seq": i}, PriorityNormal)
	}

	history := bus.History(100)
	require.Len(t, history, 10)

	// The most recent capacity envelopes, in emission order.
	for i, ev := range history {
		assert.Equal(t, 15+i, ev.Payload["seq"])
	}
}

func TestHistoryLimit(t *testing.T) {
	bus := NewBus()

	for i := 0; i < 5; i++ {
		bus.Emit(context.Background(), "resource.updated", map[string]any{"seq": i}, PriorityNormal)
	}

	history := bus.History(2)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].Payload["seq"])
	assert.Equal(t, 4, history[1].Payload["seq"])

	// Limit above current size returns everything.
	assert.Len(t, bus.History(100), 5)
}

func TestAsyncHandlerRunsOnExecutor(t *testing.T) {
	bus := NewBus(WithExecutor(syncExecutor{}))

	var got Envelope
	bus.RegisterAsync("ingestion.completed", func(ctx context.Context, ev Envelope) error {
		got = ev
		return nil
	})

	bus.Emit(context.Background(), "ingestion.completed", map[string]any{"resource_id": "R1"}, PriorityNormal)

	assert.Equal(t, "ingestion.completed", got.Name)
}

func TestAsyncHandlerErrorIsolated(t *testing.T) {
	bus := NewBus(WithExecutor(syncExecutor{}))

	syncRan := false
	bus.RegisterAsync("ingestion.failed", func(ctx context.Context, ev Envelope) error {
		return fmt.Errorf("async boom")
	})
	bus.Register("ingestion.failed", func(ctx context.Context, ev Envelope) error {
		syncRan = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), "ingestion.failed", nil, PriorityHigh)
	})
	assert.True(t, syncRan)
}

func TestObserverCollectsOutcomes(t *testing.T) {
	var mu sync.Mutex
	var outcomes []Outcome

	bus := NewBus(WithObserver(func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}))

	bus.Register("resource.updated", func(ctx context.Context, ev Envelope) error {
		return nil
	})
	bus.Register("resource.updated", func(ctx context.Context, ev Envelope) error {
		return fmt.Errorf("boom")
	})

	ev := bus.Emit(context.Background(), "resource.updated", nil, PriorityHigh)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].Err)
	assert.EqualError(t, outcomes[1].Err, "boom")
	for _, o := range outcomes {
		assert.Equal(t, "resource.updated", o.Event)
		assert.Equal(t, ev.CorrelationID, o.CorrelationID)
	}
}

func TestClearListeners(t *testing.T) {
	bus := NewBus()

	h := func(ctx context.Context, ev Envelope) error { return nil }
	bus.Register("resource.created", h)
	bus.Register("resource.updated", h)

	bus.ClearListeners("resource.created")
	assert.Empty(t, bus.Listeners("resource.created"))
	assert.Len(t, bus.Listeners("resource.updated"), 1)

	bus.ClearListeners()
	assert.Empty(t, bus.Listeners("resource.updated"))
}

func TestClearHistory(t *testing.T) {
	bus := NewBus()
	bus.Emit(context.Background(), "resource.created", nil, PriorityNormal)

	bus.ClearHistory()
	assert.Empty(t, bus.History(10))
}

func TestConcurrentEmitAndRegister(t *testing.T) {
	bus := NewBus(WithHistoryCapacity(100))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("resource.updated.%d", n%2)
			bus.Register(name, func(ctx context.Context, ev Envelope) error {
				return nil
			})
			for j := 0; j < 50; j++ {
				bus.Emit(context.Background(), name, map[string]any{"n": n, "j": j}, PriorityNormal)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, bus.History(1000), 100)
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		priority Priority
		want     string
	}{
		{PriorityCritical, "critical"},
		{PriorityHigh, "high"},
		{PriorityNormal, "normal"},
		{PriorityLow, "low"},
		{Priority(7), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.priority.String())
	}
}
