package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ram-tewari/neo-alexandria-sub001/event"
)

// Service mediates resource lifecycle mutations outside ingestion and
// emits the companion consistency events. The orchestrator writes
// ingestion fields through the store directly and signals progress with
// ingestion.* events instead.
type Service struct {
	store  Store
	bus    *event.Bus
	logger *slog.Logger
}

// NewService creates a resource service publishing on the given bus.
func NewService(store Store, bus *event.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, bus: bus, logger: logger}
}

// Register creates a pending resource for a source URL, or returns the
// existing one unchanged. The returned bool is true when a resource was
// created; resource.created is emitted only in that case.
func (s *Service) Register(ctx context.Context, url, title, source string) (*Resource, bool, error) {
	if existing, err := s.store.GetByURL(ctx, url); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("look up URL: %w", err)
	}

	now := time.Now()
	r := &Resource{
		ID:              uuid.NewString(),
		URL:             url,
		Source:          source,
		Title:           title,
		IngestionStatus: StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, r); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost a concurrent registration race; hand back the winner.
			existing, getErr := s.store.GetByURL(ctx, url)
			if getErr != nil {
				return nil, false, fmt.Errorf("load existing resource: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create resource: %w", err)
	}

	s.bus.Emit(ctx, event.ResourceCreated, map[string]any{
		"resource_id": r.ID,
		"title":       r.Title,
		"source":      r.Source,
	}, event.PriorityNormal)

	s.logger.Info("resource registered", "resource_id", r.ID, "url", url)
	return r.Clone(), true, nil
}

// Update loads a resource, applies the mutation, persists it, and emits
// resource.updated plus exactly one of resource.content_changed or
// resource.metadata_changed. Content change takes precedence when both
// content and metadata fields changed; no field-change events fire when
// nothing changed.
func (s *Service) Update(ctx context.Context, id string, apply func(*Resource)) (*Resource, error) {
	before, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	after := before.Clone()
	apply(after)
	after.ID = before.ID
	after.CreatedAt = before.CreatedAt

	changed := DiffFields(before, after)
	if len(changed) == 0 {
		return after, nil
	}
	after.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, after); err != nil {
		return nil, fmt.Errorf("update resource: %w", err)
	}

	payload := map[string]any{
		"resource_id":    id,
		"changed_fields": changed,
	}
	s.bus.Emit(ctx, event.ResourceUpdated, payload, event.PriorityHigh)

	if HasContentChange(changed) {
		s.bus.Emit(ctx, event.ResourceContentChanged, payload, event.PriorityHigh)
	} else {
		s.bus.Emit(ctx, event.ResourceMetadataChanged, payload, event.PriorityNormal)
	}

	return after.Clone(), nil
}

// Delete removes a resource and emits resource.deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}

	s.bus.Emit(ctx, event.ResourceDeleted, map[string]any{
		"resource_id": id,
		"title":       r.Title,
	}, event.PriorityHigh)

	s.logger.Info("resource deleted", "resource_id", id)
	return nil
}

// TrackInteraction records a user interaction with a resource by
// emitting user.interaction_tracked for the recommendation hooks.
func (s *Service) TrackInteraction(ctx context.Context, userID, resourceID, kind string) {
	s.bus.Emit(ctx, event.UserInteractionTracked, map[string]any{
		"user_id":     userID,
		"resource_id": resourceID,
		"type":        kind,
	}, event.PriorityLow)
}
