package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/callback-broker/internal/config"
	"github.com/openkcm/callback-broker/internal/credentials"
	"github.com/openkcm/callback-broker/internal/domains"
	"github.com/openkcm/callback-broker/internal/serviceerr"
)

// createAdminServer creates the admin API http server. The admin API is meant
// for the internal network only and exposes credential storage and the
// trusted-domains list.
func createAdminServer(_ context.Context, cfg *config.Config, creds *credentials.Service, doms *domains.Service) *http.Server {
	router := chi.NewRouter()

	router.Route("/credentials", func(r chi.Router) {
		r.Post("/", withTelemetry(cfg, "set-credential", setCredentialHandlerFunc(creds)))
		r.Get("/{service}", withTelemetry(cfg, "find-credentials", findCredentialsHandlerFunc(creds)))
		r.Delete("/{service}", withTelemetry(cfg, "delete-credentials", deleteCredentialsHandlerFunc(creds)))
		r.Get("/{service}/{account}", withTelemetry(cfg, "get-credential", getCredentialHandlerFunc(creds)))
		r.Delete("/{service}/{account}", withTelemetry(cfg, "delete-credential", deleteCredentialHandlerFunc(creds)))
	})

	router.Route("/trusted-domains", func(r chi.Router) {
		r.Get("/", withTelemetry(cfg, "list-trusted-domains", listDomainsHandlerFunc(doms)))
		r.Put("/", withTelemetry(cfg, "replace-trusted-domains", replaceDomainsHandlerFunc(doms)))
	})

	return &http.Server{
		Addr:    cfg.Admin.Address,
		Handler: router,
	}
}

// StartAdminServer starts the admin HTTP server using the given config.
func StartAdminServer(ctx context.Context, cfg *config.Config, creds *credentials.Service, doms *domains.Service) error {
	server := createAdminServer(ctx, cfg, creds, doms)

	return serve(ctx, "Admin Server", server, cfg.Admin.ShutdownTimeout)
}

func setCredentialHandlerFunc(creds *credentials.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var credential credentials.Credential
		if err := json.NewDecoder(req.Body).Decode(&credential); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := creds.Set(req.Context(), credential); err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getCredentialHandlerFunc(creds *credentials.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		credential, err := creds.Get(req.Context(), chi.URLParam(req, "service"), chi.URLParam(req, "account"))
		if err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		writeJSON(w, credential)
	}
}

func deleteCredentialHandlerFunc(creds *credentials.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := creds.Delete(req.Context(), chi.URLParam(req, "service"), chi.URLParam(req, "account"))
		if err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func findCredentialsHandlerFunc(creds *credentials.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		found, err := creds.FindByService(req.Context(), chi.URLParam(req, "service"))
		if err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		if found == nil {
			found = []credentials.Credential{}
		}

		writeJSON(w, found)
	}
}

func deleteCredentialsHandlerFunc(creds *credentials.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		deleted, err := creds.DeleteByService(req.Context(), chi.URLParam(req, "service"))
		if err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{ "deleted": ` + strconv.Itoa(deleted) + ` }`))
	}
}

type domainsDocument struct {
	Domains []string `json:"domains"`
}

func listDomainsHandlerFunc(doms *domains.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		list, err := doms.List(req.Context())
		if err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		if list == nil {
			list = []string{}
		}

		writeJSON(w, domainsDocument{Domains: list})
	}
}

func replaceDomainsHandlerFunc(doms *domains.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var doc domainsDocument
		if err := json.NewDecoder(req.Body).Decode(&doc); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := doms.Replace(req.Context(), doc.Domains); err != nil {
			writeServiceError(req.Context(), w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(value); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, serviceerr.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, serviceerr.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	default:
		slogctx.Error(ctx, "Admin request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
