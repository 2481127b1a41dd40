// Package store defines the broker-side persistence of callback payloads
// between the moment a redirect hits /callback and the moment the polling
// client picks the payload up.
package store

import (
	"context"
	"time"

	"github.com/openkcm/callback-broker/pkg/callback"
)

// Payload is a delivered set of URI components held for one request id.
type Payload struct {
	RequestID  string
	Components callback.URIComponents
	CreatedAt  time.Time
}

type Repository interface {
	// Store persists a payload under its request id, replacing any earlier
	// payload for the same id.
	Store(ctx context.Context, payload Payload) error
	// Take returns the payload for the given request id and removes it, so
	// every payload is handed out at most once. Returns
	// serviceerr.ErrNotFound when no payload is pending.
	Take(ctx context.Context, requestID string) (Payload, error)
	// List returns all pending payloads. Used by the housekeeper.
	List(ctx context.Context) ([]Payload, error)
	// Delete removes a pending payload. Deleting an absent id is an error
	// (serviceerr.ErrNotFound).
	Delete(ctx context.Context, requestID string) error
}
