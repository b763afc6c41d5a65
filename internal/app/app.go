// Package app wires configuration into the store, locker, event publisher
// and services shared by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/mealsplit/internal/config"
	"github.com/mmynk/mealsplit/internal/coordinator"
	"github.com/mmynk/mealsplit/internal/events"
	"github.com/mmynk/mealsplit/internal/locks"
	"github.com/mmynk/mealsplit/internal/messaging"
	"github.com/mmynk/mealsplit/internal/storage"
	"github.com/mmynk/mealsplit/internal/storage/postgres"
	"github.com/mmynk/mealsplit/internal/storage/sqlite"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config    *config.Config
	Store     storage.Store
	Messaging *messaging.Service
	Manager   *coordinator.Manager

	closers []func() error
}

// New opens every backend named in cfg. On error, anything already opened
// is closed again.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Store, err = OpenStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	opts := []coordinator.Option{coordinator.WithConflictWindow(cfg.Splits.ConflictWindow)}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts = append(opts, coordinator.WithLocker(
			locks.NewRedis(client, "mealsplit:lock:", locks.WithLeaseTTL(cfg.Redis.LeaseTTL)),
		))
		slog.Info("Using Redis split locks", "addr", cfg.Redis.Addr)
	}

	if cfg.NATS.URL != "" {
		pub, err := events.ConnectNATS(events.NATSConfig{URL: cfg.NATS.URL, Token: cfg.NATS.Token})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			pub.Close()
			return nil
		})
		opts = append(opts, coordinator.WithPublisher(pub))
		slog.Info("Publishing split events to NATS", "url", cfg.NATS.URL)
	}

	a.Messaging = messaging.NewService(a.Store)
	a.Manager = coordinator.NewManager(a.Store, a.Messaging, opts...)
	return a, nil
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", "sqlite", "database", cfg.SQLitePath)
		return store, nil
	case "postgres":
		store, err := postgres.New(postgres.Config{DSN: cfg.PostgresDSN})
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", "postgres")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Ping checks the backends a readiness probe cares about.
func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := a.Store.ListSplits(ctx, storage.SplitFilter{Limit: 1})
	return err
}
