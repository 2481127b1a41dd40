package business

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/callback-broker/internal/broker"
	"github.com/openkcm/callback-broker/internal/business/server"
	"github.com/openkcm/callback-broker/internal/config"
	"github.com/openkcm/callback-broker/internal/credentials"
	credentialssql "github.com/openkcm/callback-broker/internal/credentials/sql"
	"github.com/openkcm/callback-broker/internal/domains"
	domainssql "github.com/openkcm/callback-broker/internal/domains/sql"
	"github.com/openkcm/callback-broker/pkg/callback/store"
	storememory "github.com/openkcm/callback-broker/pkg/callback/store/memory"
	storevalkey "github.com/openkcm/callback-broker/pkg/callback/store/valkey"
)

// Main starts both API servers
func Main(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// errChan is used to capture the first error and shutdown the servers.
	errChan := make(chan error, 1)

	// wg is used to wait for all servers to shutdown.
	var wg sync.WaitGroup

	// start public HTTP callback API server
	wg.Go(func() {
		errChan <- publicMain(ctx, cfg)
	})

	// start internal HTTP admin API server
	wg.Go(func() {
		errChan <- adminMain(ctx, cfg)
	})

	// wait for any error to initiate the shutdown
	if err := <-errChan; err != nil {
		slogctx.Error(ctx, "Shutting down servers", "error", err)
	}
	cancel()

	// wait for all servers to shutdown
	wg.Wait()

	return nil
}

// publicMain starts the public HTTP callback API server.
func publicMain(ctx context.Context, cfg *config.Config) error {
	b, closeFn, err := initBroker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the callback broker: %w", err)
	}

	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, b)
}

// adminMain starts the internal HTTP admin API server.
func adminMain(ctx context.Context, cfg *config.Config) error {
	db, err := newPgxPool(ctx, cfg)
	if err != nil {
		return err
	}

	defer db.Close()

	credentialsService := credentials.NewService(credentialssql.NewRepository(db))
	domainsService := domains.NewService(domainssql.NewRepository(db))

	return server.StartAdminServer(ctx, cfg, credentialsService, domainsService)
}

// HousekeeperMain periodically purges callback payloads that were never
// fetched within the retention window.
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	b, closeFn, err := initBroker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the callback broker: %w", err)
	}

	defer closeFn()

	slogctx.Info(ctx, "Starting housekeeper job", "interval", cfg.Housekeeper.Interval)

	c := time.Tick(cfg.Housekeeper.Interval)
	for {
		slogctx.Info(ctx, "Triggering stale payload purge")
		if err := b.PurgeStale(ctx); err != nil {
			slogctx.Error(ctx, "Failed to purge stale payloads", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

func initBroker(ctx context.Context, cfg *config.Config) (_ *broker.Broker, closeFn func(), _ error) {
	payloads, closeStore, err := initPayloadStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	var trust broker.TrustChecker

	if cfg.Broker.EnforceTrustedDomains {
		db, err := newPgxPool(ctx, cfg)
		if err != nil {
			closeStore()
			return nil, nil, err
		}

		trust = domains.NewService(domainssql.NewRepository(db))

		next := closeStore
		closeStore = func() {
			db.Close()
			next()
		}
	}

	b, err := broker.NewBroker(payloads, trust, cfg.Broker.PayloadRetention, cfg.Broker.EnforceTrustedDomains)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("creating callback broker: %w", err)
	}

	return b, closeStore, nil
}

func initPayloadStore(cfg *config.Config) (store.Repository, func(), error) {
	switch cfg.Broker.Store {
	case "memory":
		return storememory.NewRepository(cfg.Broker.PayloadRetention), func() {}, nil
	case "valkey":
		valkeyClient, err := newValkeyClient(cfg)
		if err != nil {
			return nil, nil, err
		}

		return storevalkey.NewRepository(valkeyClient, cfg.ValKey.Prefix), valkeyClient.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown payload store %q", cfg.Broker.Store)
	}
}

func newValkeyClient(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.ValKey.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.ValKey.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

func newPgxPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}
