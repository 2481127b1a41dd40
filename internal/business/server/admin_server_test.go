package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/callback-broker/internal/config"
	"github.com/openkcm/callback-broker/internal/credentials"
	credentialsmock "github.com/openkcm/callback-broker/internal/credentials/mock"
	"github.com/openkcm/callback-broker/internal/domains"
	domainsmock "github.com/openkcm/callback-broker/internal/domains/mock"
)

func newAdminTestServer(t *testing.T, credsRepo credentials.Repository, domainsRepo domains.Repository) *httptest.Server {
	t.Helper()

	srv := createAdminServer(t.Context(), &config.Config{},
		credentials.NewService(credsRepo),
		domains.NewService(domainsRepo),
	)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func TestAdminCredentialsAPI(t *testing.T) {
	ts := newAdminTestServer(t, credentialsmock.NewInMemRepository(), domainsmock.NewInMemRepository())
	client := ts.Client()

	credential := credentials.Credential{Service: "github.com", Account: "octocat", Password: "s3cret"}

	t.Run("set", func(t *testing.T) {
		body, err := json.Marshal(credential)
		require.NoError(t, err)

		resp, err := client.Post(ts.URL+"/credentials", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("get", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/credentials/github.com/octocat")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got credentials.Credential
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, credential, got)
	})

	t.Run("find by service", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/credentials/github.com")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got []credentials.Credential
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, []credentials.Credential{credential}, got)
	})

	t.Run("delete", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/credentials/github.com/octocat", nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("get after delete", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/credentials/github.com/octocat")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestAdminTrustedDomainsAPI(t *testing.T) {
	ts := newAdminTestServer(t, credentialsmock.NewInMemRepository(), domainsmock.NewInMemRepository())
	client := ts.Client()

	t.Run("replace", func(t *testing.T) {
		body := []byte(`{ "domains": ["Example.com", "*.trusted.example.org", "example.com"] }`)

		req, err := http.NewRequest(http.MethodPut, ts.URL+"/trusted-domains", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("list returns the normalized document", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/trusted-domains")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var doc domainsDocument
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, []string{"example.com", "*.trusted.example.org"}, doc.Domains)
	})
}
