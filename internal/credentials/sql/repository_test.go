package credentialssql_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/callback-broker/internal/credentials"
	credentialssql "github.com/openkcm/callback-broker/internal/credentials/sql"
	"github.com/openkcm/callback-broker/internal/dbtest/postgrestest"
	"github.com/openkcm/callback-broker/internal/serviceerr"
)

var dbPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, _, terminate := postgrestest.Start(ctx)
	dbPool = pool

	code := m.Run()
	terminate(ctx)

	os.Exit(code)
}

func cleanupCredentials(t *testing.T) {
	t.Helper()

	_, err := dbPool.Exec(t.Context(), `DELETE FROM credentials;`)
	require.NoError(t, err, "cleaning up credentials")
}

func TestRepository_SetAndGet(t *testing.T) {
	cleanupCredentials(t)

	r := credentialssql.NewRepository(dbPool)

	credential := credentials.Credential{Service: "github.com", Account: "octocat", Password: "s3cret"}
	require.NoError(t, r.Set(t.Context(), credential))

	t.Run("Get existing credential", func(t *testing.T) {
		got, err := r.Get(t.Context(), "github.com", "octocat")
		require.NoError(t, err)
		assert.Equal(t, credential, got)
	})

	t.Run("Set replaces the password", func(t *testing.T) {
		updated := credential
		updated.Password = "rotated"
		require.NoError(t, r.Set(t.Context(), updated))

		got, err := r.Get(t.Context(), "github.com", "octocat")
		require.NoError(t, err)
		assert.Equal(t, "rotated", got.Password)
	})

	t.Run("Error does not exist", func(t *testing.T) {
		_, err := r.Get(t.Context(), "github.com", "does-not-exist")
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})
}

func TestRepository_FindByService(t *testing.T) {
	cleanupCredentials(t)

	r := credentialssql.NewRepository(dbPool)

	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "github.com", Account: "second", Password: "b"}))
	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "github.com", Account: "first", Password: "a"}))
	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "gitlab.com", Account: "other", Password: "c"}))

	found, err := r.FindByService(t.Context(), "github.com")
	require.NoError(t, err)

	require.Len(t, found, 2)
	assert.Equal(t, "first", found[0].Account)
	assert.Equal(t, "second", found[1].Account)
}

func TestRepository_Delete(t *testing.T) {
	cleanupCredentials(t)

	r := credentialssql.NewRepository(dbPool)

	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "github.com", Account: "octocat", Password: "s3cret"}))

	t.Run("Delete existing credential", func(t *testing.T) {
		assert.NoError(t, r.Delete(t.Context(), "github.com", "octocat"))
	})

	t.Run("Error does not exist", func(t *testing.T) {
		assert.ErrorIs(t, r.Delete(t.Context(), "github.com", "octocat"), serviceerr.ErrNotFound)
	})
}

func TestRepository_DeleteByService(t *testing.T) {
	cleanupCredentials(t)

	r := credentialssql.NewRepository(dbPool)

	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "github.com", Account: "one", Password: "a"}))
	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "github.com", Account: "two", Password: "b"}))
	require.NoError(t, r.Set(t.Context(), credentials.Credential{Service: "gitlab.com", Account: "other", Password: "c"}))

	deleted, err := r.DeleteByService(t.Context(), "github.com")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	found, err := r.FindByService(t.Context(), "gitlab.com")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
