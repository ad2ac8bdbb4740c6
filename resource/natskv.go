package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Bucket names for resource storage.
const (
	BucketResources    = "ALEXANDRIA_RESOURCES"
	BucketResourceURLs = "ALEXANDRIA_RESOURCE_URLS"
)

// KVStore is a Store backed by NATS JetStream key-value buckets: one for
// resources keyed by id, one indexing source URL to resource id. Create
// relies on KV create semantics (first writer wins) so concurrent
// registrations of the same URL cannot produce duplicates.
type KVStore struct {
	resources jetstream.KeyValue
	urls      jetstream.KeyValue
}

// NewKVStore creates the KV buckets if needed and returns a store.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	resources, err := getOrCreateBucket(ctx, js, BucketResources)
	if err != nil {
		return nil, fmt.Errorf("create resources bucket: %w", err)
	}

	urls, err := getOrCreateBucket(ctx, js, BucketResourceURLs)
	if err != nil {
		return nil, fmt.Errorf("create URL index bucket: %w", err)
	}

	return &KVStore{resources: resources, urls: urls}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Alexandria %s storage", strings.ToLower(name)),
		History:     5,
	})
}

// urlKey derives a KV-safe key from a source URL.
func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Create implements Store.
func (s *KVStore) Create(ctx context.Context, r *Resource) error {
	// Claim the URL first; losing the race means the URL is taken.
	if _, err := s.urls.Create(ctx, urlKey(r.URL), []byte(r.ID)); err != nil {
		if isKeyExists(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("index URL: %w", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	if _, err := s.resources.Create(ctx, r.ID, data); err != nil {
		return fmt.Errorf("store resource: %w", err)
	}
	return nil
}

// GetByID implements Store.
func (s *KVStore) GetByID(ctx context.Context, id string) (*Resource, error) {
	entry, err := s.resources.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}

	var r Resource
	if err := json.Unmarshal(entry.Value(), &r); err != nil {
		return nil, fmt.Errorf("unmarshal resource: %w", err)
	}
	return &r, nil
}

// GetByURL implements Store.
func (s *KVStore) GetByURL(ctx context.Context, url string) (*Resource, error) {
	entry, err := s.urls.Get(ctx, urlKey(url))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("look up URL: %w", err)
	}
	return s.GetByID(ctx, string(entry.Value()))
}

// Update implements Store.
func (s *KVStore) Update(ctx context.Context, r *Resource) error {
	prev, err := s.GetByID(ctx, r.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	if _, err := s.resources.Put(ctx, r.ID, data); err != nil {
		return fmt.Errorf("update resource: %w", err)
	}

	if prev.URL != r.URL {
		if _, err := s.urls.Put(ctx, urlKey(r.URL), []byte(r.ID)); err != nil {
			return fmt.Errorf("index URL: %w", err)
		}
		if err := s.urls.Delete(ctx, urlKey(prev.URL)); err != nil && !isNotFound(err) {
			return fmt.Errorf("drop old URL index: %w", err)
		}
	}
	return nil
}

// Delete implements Store.
func (s *KVStore) Delete(ctx context.Context, id string) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.urls.Delete(ctx, urlKey(r.URL)); err != nil && !isNotFound(err) {
		return fmt.Errorf("drop URL index: %w", err)
	}
	if err := s.resources.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a missing key.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound)
}

// isKeyExists checks if an error indicates a key-already-exists conflict.
func isKeyExists(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists)
}
