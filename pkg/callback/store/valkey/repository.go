// Package storevalkey persists callback payloads as JSON documents in ValKey.
package storevalkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback/store"
)

const objectTypePayload = "payload"

type Repository struct {
	valkey valkey.Client
	prefix string
}

var _ store.Repository = (*Repository)(nil)

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
}

func (r *Repository) Store(ctx context.Context, payload store.Payload) error {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	key := r.key(payload.RequestID)
	if err := r.valkey.Do(ctx, r.valkey.B().Set().Key(key).Value(valkey.BinaryString(bytes)).Build()).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

// Take removes the payload atomically via GETDEL, so concurrent takers for
// the same request id receive it at most once.
func (r *Repository) Take(ctx context.Context, requestID string) (store.Payload, error) {
	bytes, err := r.valkey.Do(ctx, r.valkey.B().Getdel().Key(r.key(requestID)).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return store.Payload{}, errors.Join(valkeyErr, serviceerr.ErrNotFound)
		}

		return store.Payload{}, fmt.Errorf("executing getdel command: %w", err)
	}

	var payload store.Payload
	if err := json.Unmarshal(bytes, &payload); err != nil {
		return store.Payload{}, fmt.Errorf("unmarshaling payload: %w", err)
	}

	return payload, nil
}

func (r *Repository) List(ctx context.Context) ([]store.Payload, error) {
	pattern := r.key("*")

	var payloads []store.Payload
	var cursor uint64
	for {
		scan, err := r.valkey.Do(ctx, r.valkey.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("executing scan command: %w", err)
		}

		cursor = scan.Cursor
		payloads = slices.Grow(payloads, len(scan.Elements))
		for _, key := range scan.Elements {
			payload, err := r.get(ctx, key)
			if err != nil {
				// a concurrent Take may have removed the key between
				// the scan and the get
				if errors.Is(err, serviceerr.ErrNotFound) {
					continue
				}

				return nil, fmt.Errorf("getting a scanned payload: %w", err)
			}

			payloads = append(payloads, payload)
		}

		if cursor == 0 {
			return payloads, nil
		}
	}
}

func (r *Repository) Delete(ctx context.Context, requestID string) error {
	deleted, err := r.valkey.Do(ctx, r.valkey.B().Del().Key(r.key(requestID)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	if deleted == 0 {
		return serviceerr.ErrNotFound
	}

	return nil
}

func (r *Repository) get(ctx context.Context, key string) (store.Payload, error) {
	bytes, err := r.valkey.Do(ctx, r.valkey.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return store.Payload{}, errors.Join(valkeyErr, serviceerr.ErrNotFound)
		}

		return store.Payload{}, fmt.Errorf("executing get command: %w", err)
	}

	var payload store.Payload
	if err := json.Unmarshal(bytes, &payload); err != nil {
		return store.Payload{}, fmt.Errorf("unmarshaling payload: %w", err)
	}

	return payload, nil
}

func (r *Repository) key(requestID string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, objectTypePayload, requestID)
}
