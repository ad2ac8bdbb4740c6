package resource

import (
	"context"
	"errors"
)

// Common storage errors.
var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when creating a resource whose URL is
	// already registered.
	ErrAlreadyExists = errors.New("resource already exists")
)

// Store persists resources. Implementations must be safe for concurrent
// use; each method operates on an independent copy of the resource.
type Store interface {
	// Create stores a new resource. Returns ErrAlreadyExists when the
	// URL is already registered.
	Create(ctx context.Context, r *Resource) error

	// GetByID retrieves a resource by id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Resource, error)

	// GetByURL retrieves a resource by source URL, or ErrNotFound.
	GetByURL(ctx context.Context, url string) (*Resource, error)

	// Update replaces a stored resource. Returns ErrNotFound when the
	// id is unknown.
	Update(ctx context.Context, r *Resource) error

	// Delete removes a resource by id. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}
