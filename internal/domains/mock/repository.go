package domainsmock

import (
	"context"
	"slices"

	"github.com/openkcm/callback-broker/internal/domains"
)

type RepositoryOption func(*Repository)

type Repository struct {
	list []string

	loadErr, saveErr error
}

func WithDomains(list ...string) RepositoryOption {
	return func(r *Repository) { r.list = slices.Clone(list) }
}
func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithSaveError(err error) RepositoryOption {
	return func(r *Repository) { r.saveErr = err }
}

var _ = domains.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{list: []string{}}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) Load(_ context.Context) ([]string, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return slices.Clone(r.list), nil
}

func (r *Repository) Save(_ context.Context, list []string) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.list = slices.Clone(list)
	return nil
}
