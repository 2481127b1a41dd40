// Package storememory keeps callback payloads in process memory with
// retention-based expiration. Suited for single-node deployments and tests;
// clustered deployments use the ValKey store instead.
package storememory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback/store"
)

type Repository struct {
	// mu makes the get-then-delete of Take and Delete atomic; the cache
	// itself only guards single operations.
	mu    sync.Mutex
	cache *gocache.Cache
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates an in-memory payload store. Payloads not taken within
// the retention period expire on their own.
func NewRepository(retention time.Duration) *Repository {
	return &Repository{
		cache: gocache.New(retention, retention/2),
	}
}

func (r *Repository) Store(_ context.Context, payload store.Payload) error {
	r.cache.Set(payload.RequestID, payload, gocache.DefaultExpiration)
	return nil
}

func (r *Repository) Take(_ context.Context, requestID string) (store.Payload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.cache.Get(requestID)
	if !ok {
		return store.Payload{}, serviceerr.ErrNotFound
	}

	r.cache.Delete(requestID)

	//nolint:forcetypeassert
	return item.(store.Payload), nil
}

func (r *Repository) List(_ context.Context) ([]store.Payload, error) {
	items := r.cache.Items()

	payloads := make([]store.Payload, 0, len(items))
	for _, item := range items {
		//nolint:forcetypeassert
		payloads = append(payloads, item.Object.(store.Payload))
	}

	return payloads, nil
}

func (r *Repository) Delete(_ context.Context, requestID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache.Get(requestID); !ok {
		return serviceerr.ErrNotFound
	}

	r.cache.Delete(requestID)

	return nil
}
