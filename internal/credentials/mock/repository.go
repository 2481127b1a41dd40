package credentialsmock

import (
	"context"
	"sort"

	"github.com/openkcm/callback-broker/internal/credentials"
	"github.com/openkcm/callback-broker/internal/serviceerr"
)

type key struct {
	service, account string
}

type RepositoryOption func(*Repository)

type Repository struct {
	store map[key]credentials.Credential

	getErr, setErr, deleteErr, findErr error
}

func WithCredential(credential credentials.Credential) RepositoryOption {
	return func(r *Repository) {
		r.store[key{credential.Service, credential.Account}] = credential
	}
}
func WithGetError(err error) RepositoryOption {
	return func(r *Repository) { r.getErr = err }
}
func WithSetError(err error) RepositoryOption {
	return func(r *Repository) { r.setErr = err }
}
func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}
func WithFindError(err error) RepositoryOption {
	return func(r *Repository) { r.findErr = err }
}

var _ = credentials.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		store: make(map[key]credentials.Credential),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Get(_ context.Context, service, account string) (credentials.Credential, error) {
	if r.getErr != nil {
		return credentials.Credential{}, r.getErr
	}
	if credential, ok := r.store[key{service, account}]; ok {
		return credential, nil
	}
	return credentials.Credential{}, serviceerr.ErrNotFound
}

func (r *Repository) Set(_ context.Context, credential credentials.Credential) error {
	if r.setErr != nil {
		return r.setErr
	}
	r.store[key{credential.Service, credential.Account}] = credential
	return nil
}

func (r *Repository) Delete(_ context.Context, service, account string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.store[key{service, account}]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.store, key{service, account})
	return nil
}

func (r *Repository) FindByService(_ context.Context, service string) ([]credentials.Credential, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var found []credentials.Credential
	for k, credential := range r.store {
		if k.service == service {
			found = append(found, credential)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Account < found[j].Account })
	return found, nil
}

func (r *Repository) DeleteByService(_ context.Context, service string) (int, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	deleted := 0
	for k := range r.store {
		if k.service == service {
			delete(r.store, k)
			deleted++
		}
	}
	return deleted, nil
}
