package event

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// defaultHistoryCapacity bounds the emission history ring.
const defaultHistoryCapacity = 1000

// HandlerFunc consumes one envelope. A returned error (or panic) is
// isolated by the bus: it is logged and recorded as an outcome but never
// reaches the publisher or other handlers.
type HandlerFunc func(ctx context.Context, ev Envelope) error

// Executor schedules asynchronous handler invocations. The bus is
// decoupled from any particular concurrency runtime; production uses
// GoExecutor, tests can substitute a synchronous one.
type Executor interface {
	Go(fn func())
}

// GoExecutor runs each function on its own goroutine.
type GoExecutor struct{}

// Go implements Executor.
func (GoExecutor) Go(fn func()) { go fn() }

// Outcome records the result of a single handler invocation. Outcomes are
// collected for observability only; they are never propagated to the
// publisher.
type Outcome struct {
	Event         string
	CorrelationID string
	Async         bool
	Err           error
	Duration      time.Duration
}

// registration pairs a handler with its identity for dedup.
type registration struct {
	id      uintptr
	handler HandlerFunc
	async   bool
}

// Bus is the process-wide publish/subscribe dispatcher. One instance is
// constructed at process start and passed by reference to publishers and
// hook registration; tests construct their own instance instead of
// resetting shared state.
//
// The listener table and history ring are the only shared mutable state
// and both are guarded by the bus mutex, so Register, Unregister, Emit
// and history access are safe under concurrent use.
type Bus struct {
	mu        sync.Mutex
	listeners map[string][]registration
	history   []Envelope
	capacity  int
	lastEmit  time.Time

	executor Executor
	logger   *slog.Logger
	observer func(Outcome)
	metrics  *Metrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithHistoryCapacity overrides the history ring capacity.
func WithHistoryCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithExecutor injects the scheduler for asynchronous handlers.
func WithExecutor(e Executor) Option {
	return func(b *Bus) { b.executor = e }
}

// WithLogger sets the bus logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithObserver registers a callback invoked with every handler outcome.
// The callback may run from handler goroutines and must be safe for
// concurrent use.
func WithObserver(fn func(Outcome)) Option {
	return func(b *Bus) { b.observer = fn }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// NewBus constructs a bus with a bounded history ring.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string][]registration),
		capacity:  defaultHistoryCapacity,
		executor:  GoExecutor{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// handlerID derives a comparable identity from a handler reference.
// Identity is the function's code pointer: closures created at the same
// source location share one identity, so distinct hooks for the same
// event must be distinct functions or methods.
func handlerID(h HandlerFunc) uintptr {
	return reflect.ValueOf(h).Pointer()
}

// Register adds a synchronous handler for the named event. Registering
// the same (handler, event name) pair twice is a no-op.
func (b *Bus) Register(name string, h HandlerFunc) {
	b.register(name, h, false)
}

// RegisterAsync adds a handler invoked on the bus executor, independent
// of Emit's return. Duplicate registration is a no-op.
func (b *Bus) RegisterAsync(name string, h HandlerFunc) {
	b.register(name, h, true)
}

func (b *Bus) register(name string, h HandlerFunc, async bool) {
	if h == nil {
		return
	}
	id := handlerID(h)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, reg := range b.listeners[name] {
		if reg.id == id {
			return
		}
	}
	b.listeners[name] = append(b.listeners[name], registration{id: id, handler: h, async: async})
}

// Unregister removes all entries matching the handler for the named
// event. It is idempotent.
func (b *Bus) Unregister(name string, h HandlerFunc) {
	if h == nil {
		return
	}
	id := handlerID(h)

	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.listeners[name]
	kept := regs[:0]
	for _, reg := range regs {
		if reg.id != id {
			kept = append(kept, reg)
		}
	}
	if len(kept) == 0 {
		delete(b.listeners, name)
		return
	}
	b.listeners[name] = kept
}

// Emit constructs an envelope, appends it to history, and fans it out to
// every handler registered for the name, synchronous handlers inline in
// registration order, asynchronous ones on the executor. Emission is
// fan-out, not request/response: the returned envelope is the only
// result, never anything derived from handler execution.
func (b *Bus) Emit(ctx context.Context, name string, payload map[string]any, priority Priority) Envelope {
	b.mu.Lock()

	// History ordering relies on non-decreasing timestamps even if the
	// wall clock steps backwards.
	now := time.Now()
	if now.Before(b.lastEmit) {
		now = b.lastEmit
	}
	b.lastEmit = now

	ev := Envelope{
		Name:          name,
		Payload:       payload,
		Timestamp:     now,
		Priority:      priority,
		CorrelationID: newCorrelationID(),
	}

	b.history = append(b.history, ev)
	if len(b.history) > b.capacity {
		b.history = b.history[len(b.history)-b.capacity:]
	}

	regs := make([]registration, len(b.listeners[name]))
	copy(regs, b.listeners[name])
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.emitted.WithLabelValues(name).Inc()
	}

	for _, reg := range regs {
		if reg.async {
			r := reg
			b.executor.Go(func() {
				b.invoke(ctx, r, ev)
			})
			continue
		}
		b.invoke(ctx, reg, ev)
	}

	return ev
}

// invoke runs one handler with full error isolation: errors and panics
// are converted to outcomes and logged, never propagated.
func (b *Bus) invoke(ctx context.Context, reg registration, ev Envelope) {
	start := time.Now()
	err := b.safeCall(ctx, reg.handler, ev)

	out := Outcome{
		Event:         ev.Name,
		CorrelationID: ev.CorrelationID,
		Async:         reg.async,
		Err:           err,
		Duration:      time.Since(start),
	}

	if err != nil {
		b.logger.Error("event handler failed",
			"event", ev.Name,
			"correlation_id", ev.CorrelationID,
			"async", reg.async,
			"error", err)
		if b.metrics != nil {
			b.metrics.handlerFailures.WithLabelValues(ev.Name).Inc()
		}
	}

	if b.observer != nil {
		b.observer(out)
	}
}

// safeCall invokes the handler and converts panics into errors.
func (b *Bus) safeCall(ctx context.Context, h HandlerFunc, ev Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

// Listeners returns the handlers registered for the named event, in
// registration order.
func (b *Bus) Listeners(name string) []HandlerFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.listeners[name]
	handlers := make([]HandlerFunc, len(regs))
	for i, reg := range regs {
		handlers[i] = reg.handler
	}
	return handlers
}

// History returns up to limit recent envelopes, most recent last.
func (b *Bus) History(limit int) []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]Envelope, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}

// ClearListeners removes registrations for the given event names, or all
// registrations when called without arguments. Used for test isolation.
func (b *Bus) ClearListeners(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(names) == 0 {
		b.listeners = make(map[string][]registration)
		return
	}
	for _, name := range names {
		delete(b.listeners, name)
	}
}

// ClearHistory discards the history ring.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
