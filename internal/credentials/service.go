// Package credentials implements the key/value credential persistence used by
// workbench clients: get, set, delete and find-by-service over an opaque
// (service, account) → password mapping.
package credentials

import (
	"context"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the stored credential for the service/account pair. Returns
// serviceerr.ErrNotFound when no credential is stored; callers map that to
// their protocol's "no password" answer.
func (s *Service) Get(ctx context.Context, service, account string) (Credential, error) {
	if err := validateKey(service, account); err != nil {
		return Credential{}, err
	}

	credential, err := s.repo.Get(ctx, service, account)
	if err != nil {
		return Credential{}, fmt.Errorf("getting credential: %w", err)
	}

	return credential, nil
}

// Set stores the credential, replacing an existing one for the same
// service/account pair.
func (s *Service) Set(ctx context.Context, credential Credential) error {
	if err := validateKey(credential.Service, credential.Account); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, credential); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	slogctx.Info(ctx, "Stored a credential", "service", credential.Service, "account", credential.Account)

	return nil
}

func (s *Service) Delete(ctx context.Context, service, account string) error {
	if err := validateKey(service, account); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, service, account); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	slogctx.Info(ctx, "Deleted a credential", "service", service, "account", account)

	return nil
}

// FindByService lists every credential stored for a service.
func (s *Service) FindByService(ctx context.Context, service string) ([]Credential, error) {
	if service == "" {
		return nil, errors.New("service must not be empty")
	}

	found, err := s.repo.FindByService(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("finding credentials by service: %w", err)
	}

	return found, nil
}

// DeleteByService removes every credential of a service and returns how many
// were removed.
func (s *Service) DeleteByService(ctx context.Context, service string) (int, error) {
	if service == "" {
		return 0, errors.New("service must not be empty")
	}

	deleted, err := s.repo.DeleteByService(ctx, service)
	if err != nil {
		return 0, fmt.Errorf("deleting credentials by service: %w", err)
	}

	slogctx.Info(ctx, "Deleted credentials of a service", "service", service, "count", deleted)

	return deleted, nil
}

func validateKey(service, account string) error {
	if service == "" {
		return errors.New("service must not be empty")
	}
	if account == "" {
		return errors.New("account must not be empty")
	}

	return nil
}
