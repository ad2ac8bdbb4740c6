package ingest

import (
	"context"

	"github.com/ram-tewari/neo-alexandria-sub001/resource"
)

// Session is the single-use unit of work owned by one ingestion run.
// Sessions are never shared across concurrent runs; the orchestrator
// releases its session unconditionally when the run ends.
type Session interface {
	// Resources gives access to resource persistence for this run.
	Resources() resource.Store

	// Close releases the session. Safe to call exactly once per run.
	Close() error
}

// SessionFactory opens a fresh session for one run.
type SessionFactory func(ctx context.Context) (Session, error)

// storeSession is a Session over a shared store, for backends whose
// connections are managed internally (in-memory, NATS KV).
type storeSession struct {
	store resource.Store
}

func (s *storeSession) Resources() resource.Store { return s.store }
func (s *storeSession) Close() error              { return nil }

// StoreSessions returns a SessionFactory handing out sessions over a
// shared store.
func StoreSessions(store resource.Store) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return &storeSession{store: store}, nil
	}
}
