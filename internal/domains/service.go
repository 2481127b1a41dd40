// Package domains manages the list of domains trusted to receive callback
// redirects. Entries are host names, optionally with a leading "*." matching
// any subdomain.
package domains

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"

	slogctx "github.com/veqryn/slog-context"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the current trusted-domains list.
func (s *Service) List(ctx context.Context) ([]string, error) {
	list, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading trusted domains: %w", err)
	}

	return list, nil
}

// Replace stores the given list as the complete new trusted-domains list.
// Entries are lower-cased, trimmed and de-duplicated; order is preserved.
func (s *Service) Replace(ctx context.Context, list []string) error {
	normalized := make([]string, 0, len(list))
	for _, entry := range list {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" || slices.Contains(normalized, entry) {
			continue
		}

		normalized = append(normalized, entry)
	}

	if err := s.repo.Save(ctx, normalized); err != nil {
		return fmt.Errorf("saving trusted domains: %w", err)
	}

	slogctx.Info(ctx, "Replaced the trusted domains list", "count", len(normalized))

	return nil
}

// IsTrusted reports whether the authority's host matches an entry of the
// list, either exactly or through a "*." wildcard entry. A port in the
// authority is ignored.
func (s *Service) IsTrusted(ctx context.Context, authority string) (bool, error) {
	list, err := s.repo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading trusted domains: %w", err)
	}

	host := strings.ToLower(authority)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	for _, entry := range list {
		if matches(entry, host) {
			return true, nil
		}
	}

	return false, nil
}

func matches(entry, host string) bool {
	if suffix, ok := strings.CutPrefix(entry, "*."); ok {
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}

	return entry == host
}
