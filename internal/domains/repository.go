package domains

import "context"

// Repository persists the trusted-domains list as one document, mirroring the
// whole-list read/write semantics of the JSON file it replaces.
type Repository interface {
	// Load returns the stored list. An empty list is returned when nothing
	// has been stored yet.
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, domains []string) error
}
