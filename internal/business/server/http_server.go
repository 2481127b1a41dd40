package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/callback-broker/internal/broker"
	"github.com/openkcm/callback-broker/internal/config"
	"github.com/openkcm/callback-broker/pkg/callback"
)

// createHTTPServer creates the public API http server using the given config
func createHTTPServer(_ context.Context, cfg *config.Config, b *broker.Broker) *http.Server {
	router := chi.NewRouter()
	router.Get(callback.CallbackPath, withTelemetry(cfg, "callback", callbackHandlerFunc(b)))
	router.Get(callback.FetchCallbackPath, withTelemetry(cfg, "fetch-callback", fetchCallbackHandlerFunc(b)))
	router.Get("/ping", withTelemetry(cfg, "ping", pingHandlerFunc()))

	return &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}
}

func pingHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		_, err := w.Write([]byte("{ \"result\": \"ping\" }"))
		if err != nil {
			return
		}
	}
}

// StartHTTPServer starts the public HTTP server using the given config.
func StartHTTPServer(ctx context.Context, cfg *config.Config, b *broker.Broker) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server := createHTTPServer(ctx, cfg, b)

	return serve(ctx, "HTTP Server", server, cfg.HTTP.ShutdownTimeout)
}

// serve binds a listener for the given server, serves until the context is
// cancelled and then shuts the server down gracefully.
func serve(ctx context.Context, name string, server *http.Server, shutdownTimeout time.Duration) error {
	slogctx.Info(ctx, "Starting a listener", "server", name, "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default. Some integration tests are easier to implement
	// by binding a listener to a unix socket rather than a TCP port,
	// since we don't need to look up for a free port or scan /proc/net on Linux or call sysctl on macOS
	// to discover which port the process is bound to.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In(name).
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "server", name, "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "server", name, "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "server", name, "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server", "server", name)
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In(name).
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server", "server", name)

	return nil
}
