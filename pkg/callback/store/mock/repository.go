package storemock

import (
	"context"

	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback/store"
)

type RepositoryOption func(*Repository)

type Repository struct {
	payloads map[string]store.Payload

	storeErr, takeErr, listErr, deleteErr error
}

func WithPayload(payload store.Payload) RepositoryOption {
	return func(r *Repository) { r.payloads[payload.RequestID] = payload }
}
func WithStoreError(err error) RepositoryOption {
	return func(r *Repository) { r.storeErr = err }
}
func WithTakeError(err error) RepositoryOption {
	return func(r *Repository) { r.takeErr = err }
}
func WithListError(err error) RepositoryOption {
	return func(r *Repository) { r.listErr = err }
}
func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = store.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		payloads: make(map[string]store.Payload),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Store(_ context.Context, payload store.Payload) error {
	if r.storeErr != nil {
		return r.storeErr
	}
	r.payloads[payload.RequestID] = payload
	return nil
}

func (r *Repository) Take(_ context.Context, requestID string) (store.Payload, error) {
	if r.takeErr != nil {
		return store.Payload{}, r.takeErr
	}
	if payload, ok := r.payloads[requestID]; ok {
		delete(r.payloads, requestID)
		return payload, nil
	}
	return store.Payload{}, serviceerr.ErrNotFound
}

func (r *Repository) List(_ context.Context) ([]store.Payload, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	payloads := make([]store.Payload, 0, len(r.payloads))
	for _, payload := range r.payloads {
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func (r *Repository) Delete(_ context.Context, requestID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.payloads[requestID]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.payloads, requestID)
	return nil
}
