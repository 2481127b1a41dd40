package storememory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback"
	"github.com/openkcm/callback-broker/pkg/callback/store"
	storememory "github.com/openkcm/callback-broker/pkg/callback/store/memory"
)

func TestRepository_TakeRemovesPayload(t *testing.T) {
	r := storememory.NewRepository(time.Minute)

	payload := store.Payload{
		RequestID:  "requestid-one",
		Components: callback.URIComponents{Scheme: "vscode", Query: "code=abc"},
		CreatedAt:  time.Now(),
	}
	require.NoError(t, r.Store(t.Context(), payload))

	got, err := r.Take(t.Context(), "requestid-one")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = r.Take(t.Context(), "requestid-one")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}

func TestRepository_ConcurrentTake(t *testing.T) {
	r := storememory.NewRepository(time.Minute)

	require.NoError(t, r.Store(t.Context(), store.Payload{RequestID: "requestid-one"}))

	const takers = 8

	successes := make(chan store.Payload, takers)

	var wg sync.WaitGroup
	for range takers {
		wg.Go(func() {
			if payload, err := r.Take(t.Context(), "requestid-one"); err == nil {
				successes <- payload
			}
		})
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1, "payload must be handed out at most once")
}

func TestRepository_List(t *testing.T) {
	r := storememory.NewRepository(time.Minute)

	require.NoError(t, r.Store(t.Context(), store.Payload{RequestID: "requestid-one"}))
	require.NoError(t, r.Store(t.Context(), store.Payload{RequestID: "requestid-two"}))

	got, err := r.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRepository_Delete(t *testing.T) {
	r := storememory.NewRepository(time.Minute)

	require.NoError(t, r.Store(t.Context(), store.Payload{RequestID: "requestid-one"}))
	assert.NoError(t, r.Delete(t.Context(), "requestid-one"))
	assert.ErrorIs(t, r.Delete(t.Context(), "requestid-one"), serviceerr.ErrNotFound)
}

func TestRepository_ExpiresPayloads(t *testing.T) {
	r := storememory.NewRepository(20 * time.Millisecond)

	require.NoError(t, r.Store(t.Context(), store.Payload{RequestID: "requestid-one"}))

	time.Sleep(50 * time.Millisecond)

	_, err := r.Take(t.Context(), "requestid-one")
	assert.ErrorIs(t, err, serviceerr.ErrNotFound)
}
