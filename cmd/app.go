package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"donation-nodes/pkg/clients/charityspurse"
	"donation-nodes/pkg/config"
	"donation-nodes/pkg/credentials"
	"donation-nodes/pkg/donation"
	"donation-nodes/pkg/engine/handlers"
	"donation-nodes/pkg/host"
	"donation-nodes/pkg/state"
	"donation-nodes/pkg/state/postgres"
	redisstore "donation-nodes/pkg/state/redis"
)

// app holds everything a command needs, built once from configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  charityspurse.Client
	store   state.Store
	runtime *host.Runtime
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// newApp loads configuration and wires the store, client and runtime.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	return buildApp(ctx, cfg, logger, charityspurse.NewHTTPClient(cfg.API.Timeout))
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, client charityspurse.Client) (*app, error) {
	a := &app{cfg: cfg, logger: logger, client: client}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	gate := donation.Gate{Interval: cfg.Poll.Interval, Backoff: cfg.Poll.ErrorBackoff}
	a.runtime = host.NewRuntime(
		handlers.NewRegistry(client, gate),
		store,
		credentials.NewStaticResolver(cfg.APIKeys()),
		host.WithLogger(logger),
	)

	for _, inst := range cfg.HostInstances() {
		if err := a.runtime.AddInstance(inst); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (state.Store, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, a.cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		store := postgres.New(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate cursor tables: %w", err)
		}
		a.logger.Info("using postgres cursor store")
		return store, nil

	case config.DriverRedis:
		client, err := redisstore.Open(ctx, a.cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.logger.Info("using redis cursor store")
		return redisstore.New(client), nil

	default:
		a.logger.Info("using in-memory cursor store; state is lost on exit")
		return state.NewMemoryStore(), nil
	}
}
