package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abdulachik/socialgate/internal/config"
	"github.com/abdulachik/socialgate/internal/health"
	"github.com/abdulachik/socialgate/internal/media"
	"github.com/abdulachik/socialgate/internal/metrics"
	"github.com/abdulachik/socialgate/internal/registry"
	"github.com/abdulachik/socialgate/internal/store"
)

// App is the main application container holding all dependencies.
type App struct {
	Config   *config.Config
	Store    store.Store
	Media    *media.Opener
	Metrics  *metrics.Collector
	Registry *registry.Registry
	Health   *health.Health

	gatherer *prometheus.Registry
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.ValidateForStore(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	st, err := store.Open(ctx, store.Config{
		Driver:       cfg.StoreDriver,
		DatabasePath: cfg.DatabasePath,
		RedisURL:     cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	opener := &media.Opener{
		Fetcher: media.NewFetcher(cfg.HTTPTimeout, 0),
	}
	s3, err := media.NewS3Source(ctx, media.S3Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		slog.Warn("s3 media source disabled", "error", err)
	} else {
		opener.S3 = s3
	}

	gatherer := prometheus.NewRegistry()
	collector := metrics.NewCollector(gatherer)

	reg := registry.New(registry.Options{
		Config:   cfg,
		Store:    st,
		Media:    opener,
		Recorder: collector,
	})

	return &App{
		Config:   cfg,
		Store:    st,
		Media:    opener,
		Metrics:  collector,
		Registry: reg,
		Health:   health.New(),
		gatherer: gatherer,
	}, nil
}

// Check probes the store and validates every configured credential.
func (a *App) Check(ctx context.Context) *health.Health {
	checks := []health.Check{{
		Name: "store",
		Run: func(ctx context.Context) (string, error) {
			key := "health:probe"
			if err := a.Store.Put(ctx, key, []byte("ok"), time.Minute); err != nil {
				return "", fmt.Errorf("write probe: %w", err)
			}
			if _, err := a.Store.Take(ctx, key); err != nil {
				return "", fmt.Errorf("read probe: %w", err)
			}
			return fmt.Sprintf("%s store reachable", a.Config.StoreDriver), nil
		},
	}}

	for _, p := range a.Registry.Configured() {
		cred, err := a.Registry.Credential(p)
		if err != nil {
			a.Health.SetUnhealthy(string(p), err)
			continue
		}
		adapter, err := a.Registry.Adapter(p)
		if err != nil {
			a.Health.SetUnhealthy(string(p), err)
			continue
		}
		checks = append(checks, health.CredentialCheck(adapter, cred))
	}

	a.Health.Run(ctx, checks)
	return a.Health
}

// Close writes the metrics file, when configured, and closes the store.
func (a *App) Close() error {
	if a.Config.MetricsFile != "" {
		if err := metrics.WriteFile(a.Config.MetricsFile, a.gatherer); err != nil {
			slog.Warn("failed to write metrics", "path", a.Config.MetricsFile, "error", err)
		}
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
