// Package broker implements the server half of the URL callback protocol:
// accepting redirected callbacks, holding their payloads until the polling
// client fetches them, and purging payloads nobody ever fetched.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback"
	"github.com/openkcm/callback-broker/pkg/callback/store"
)

// TrustChecker decides whether a callback authority may be accepted.
type TrustChecker interface {
	IsTrusted(ctx context.Context, authority string) (bool, error)
}

type Broker struct {
	payloads store.Repository
	trust    TrustChecker

	retention    time.Duration
	enforceTrust bool
}

// NewBroker creates a broker over the given payload store. The trust checker
// may be nil when trusted-domain enforcement is disabled.
func NewBroker(payloads store.Repository, trust TrustChecker, retention time.Duration, enforceTrust bool) (*Broker, error) {
	if enforceTrust && trust == nil {
		return nil, errors.New("trusted-domain enforcement requires a trust checker")
	}

	return &Broker{
		payloads:     payloads,
		trust:        trust,
		retention:    retention,
		enforceTrust: enforceTrust,
	}, nil
}

// Accept stores the URI components delivered by a redirect for the given
// request id. The payload replaces any earlier one for the same id.
func (b *Broker) Accept(ctx context.Context, requestID string, components callback.URIComponents) error {
	if requestID == "" {
		return serviceerr.ErrMissingRequestID
	}

	if b.enforceTrust && components.Authority != "" {
		trusted, err := b.trust.IsTrusted(ctx, components.Authority)
		if err != nil {
			return fmt.Errorf("checking trusted domains: %w", err)
		}
		if !trusted {
			return serviceerr.ErrUntrustedDomain
		}
	}

	payload := store.Payload{
		RequestID:  requestID,
		Components: components,
		CreatedAt:  time.Now(),
	}

	if err := b.payloads.Store(ctx, payload); err != nil {
		return fmt.Errorf("storing payload: %w", err)
	}

	slogctx.Info(ctx, "Accepted a callback payload", "request_id", requestID)

	return nil
}

// Fetch returns the JSON-encoded payload for the given request id, removing
// it so it is handed out exactly once. A nil slice with a nil error means no
// payload has arrived yet.
func (b *Broker) Fetch(ctx context.Context, requestID string) ([]byte, error) {
	if requestID == "" {
		return nil, serviceerr.ErrMissingRequestID
	}

	payload, err := b.payloads.Take(ctx, requestID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("taking payload: %w", err)
	}

	body, err := json.Marshal(payload.Components)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload components: %w", err)
	}

	slogctx.Info(ctx, "Handed out a callback payload", "request_id", requestID)

	return body, nil
}

// PurgeStale deletes payloads older than the retention period. Clients give
// up polling after their own timeout, so anything this old is unreachable.
func (b *Broker) PurgeStale(ctx context.Context) error {
	payloads, err := b.payloads.List(ctx)
	if err != nil {
		return fmt.Errorf("listing payloads: %w", err)
	}

	for _, payload := range payloads {
		if time.Since(payload.CreatedAt) < b.retention {
			continue
		}

		if err := b.payloads.Delete(ctx, payload.RequestID); err != nil {
			slogctx.Warn(ctx, "Could not delete stale payload", "request_id", payload.RequestID, "error", err)
			continue
		}

		slogctx.Info(ctx, "Deleted stale payload", "request_id", payload.RequestID)
	}

	return nil
}
