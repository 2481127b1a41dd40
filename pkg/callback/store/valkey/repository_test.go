package storevalkey_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/callback-broker/internal/dbtest/valkeytest"
	"github.com/openkcm/callback-broker/internal/serviceerr"
	"github.com/openkcm/callback-broker/pkg/callback"
	"github.com/openkcm/callback-broker/pkg/callback/store"
	storevalkey "github.com/openkcm/callback-broker/pkg/callback/store/valkey"
)

var client valkey.Client
var testTime time.Time

func init() {
	testTime = time.Now().Truncate(time.Second)

	// There's a little inconsistency with the timezone when RFC3339 is parsed
	// from a JSON object. So we do a workaround here
	t, _ := testTime.MarshalJSON()
	_ = testTime.UnmarshalJSON(t)
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	valkeyClient, _, terminate := valkeytest.Start(ctx)
	client = valkeyClient

	code := m.Run()
	terminate(ctx)

	os.Exit(code)
}

func preparePayload(t *testing.T, prefix string, payload store.Payload) {
	t.Helper()

	key := fmt.Sprintf("%s:payload:%s", prefix, payload.RequestID)
	err := client.Do(t.Context(), client.B().Set().Key(key).Value(valkey.JSON(payload)).Build()).Error()
	require.NoError(t, err, "inserting payload")
}

func TestRepository_Take(t *testing.T) {
	const prefix = "callback-broker-take-test"

	preparePayload(t, prefix, store.Payload{
		RequestID: "requestid-one",
		Components: callback.URIComponents{
			Scheme:    "vscode",
			Authority: "example.com",
			Query:     "code=abc",
		},
		CreatedAt: testTime,
	})

	r := storevalkey.NewRepository(client, prefix)

	t.Run("Take existing payload", func(t *testing.T) {
		got, err := r.Take(t.Context(), "requestid-one")
		require.NoError(t, err)

		assert.Equal(t, "requestid-one", got.RequestID)
		assert.Equal(t, "code=abc", got.Components.Query)
		assert.Equal(t, testTime, got.CreatedAt)
	})

	t.Run("Take removes the payload", func(t *testing.T) {
		_, err := r.Take(t.Context(), "requestid-one")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("Error does not exist", func(t *testing.T) {
		_, err := r.Take(t.Context(), "does-not-exist")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})
}

func TestRepository_ConcurrentTake(t *testing.T) {
	const prefix = "callback-broker-concurrent-take-test"

	preparePayload(t, prefix, store.Payload{RequestID: "requestid-one", CreatedAt: testTime})

	r := storevalkey.NewRepository(client, prefix)

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

func TestRepository_Store(t *testing.T) {
	const prefix = "callback-broker-store-test"

	r := storevalkey.NewRepository(client, prefix)

	payload := store.Payload{
		RequestID: "requestid-two",
		Components: callback.URIComponents{
			Scheme: "vscode",
			Path:   "/auth",
		},
		CreatedAt: testTime,
	}

	require.NoError(t, r.Store(t.Context(), payload))

	got, err := r.Take(t.Context(), "requestid-two")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestRepository_List(t *testing.T) {
	const prefix = "callback-broker-list-test"

	preparePayload(t, prefix, store.Payload{RequestID: "requestid-one", CreatedAt: testTime})
	preparePayload(t, prefix, store.Payload{RequestID: "requestid-two", CreatedAt: testTime})
	preparePayload(t, "callback-broker-other-prefix", store.Payload{RequestID: "requestid-other", CreatedAt: testTime})

	r := storevalkey.NewRepository(client, prefix)

	got, err := r.List(t.Context())
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, payload := range got {
		ids = append(ids, payload.RequestID)
	}
	sort.Strings(ids)

	assert.Equal(t, []string{"requestid-one", "requestid-two"}, ids)
}

func TestRepository_Delete(t *testing.T) {
	const prefix = "callback-broker-delete-test"

	preparePayload(t, prefix, store.Payload{RequestID: "requestid-one", CreatedAt: testTime})

	r := storevalkey.NewRepository(client, prefix)

	t.Run("Delete existing payload", func(t *testing.T) {
		assert.NoError(t, r.Delete(t.Context(), "requestid-one"))
	})

	t.Run("Error does not exist", func(t *testing.T) {
		assert.ErrorIs(t, r.Delete(t.Context(), "requestid-one"), serviceerr.ErrNotFound)
	})
}
