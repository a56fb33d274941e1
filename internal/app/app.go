// Package app assembles the ingestion service from configuration. The
// HTTP server and the csvingest CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/csvdatasets/internal/config"
	"github.com/JonMunkholm/csvdatasets/internal/core"
	"github.com/JonMunkholm/csvdatasets/internal/files"
	"github.com/JonMunkholm/csvdatasets/internal/metrics"
	"github.com/JonMunkholm/csvdatasets/internal/metrics/datadog"
	"github.com/JonMunkholm/csvdatasets/internal/storage"

	// Register storage backends.
	_ "github.com/JonMunkholm/csvdatasets/internal/storage/memory"
	_ "github.com/JonMunkholm/csvdatasets/internal/storage/postgres"
	_ "github.com/JonMunkholm/csvdatasets/internal/storage/sqlite"
)

// App owns the long-lived resources behind a core.Service.
type App struct {
	Service *core.Service
	Store   storage.Repository
	Files   *files.Store

	closeMetrics func() error
}

// Open connects the dataset store, opens the file store and builds the
// service. Close releases everything Open acquired.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.New(ctx, storage.Config{
		Kind:            cfg.Database.Kind,
		DSN:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Kind, err)
	}

	if cfg.Database.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	fs, err := files.Open(cfg.Files.Root, cfg.Upload.MaxFileSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open file store: %w", err)
	}

	backend, closeMetrics, err := newMetrics(ctx, cfg.Metrics)
	if err != nil {
		fs.Close()
		store.Close()
		return nil, err
	}

	svc := core.NewService(fs, store, core.Options{
		BatchSize:     cfg.Upload.BatchSize,
		MaxConcurrent: cfg.Upload.MaxConcurrent,
		MaxWait:       cfg.Upload.MaxWaitTime,
		Metrics:       backend,
	})

	slog.Info("service ready",
		"db_kind", cfg.Database.Kind,
		"files_root", cfg.Files.Root,
		"metrics", cfg.Metrics.Backend,
		"batch_size", cfg.Upload.BatchSize,
	)

	return &App{
		Service:      svc,
		Store:        store,
		Files:        fs,
		closeMetrics: closeMetrics,
	}, nil
}

// Close flushes metrics and closes the stores.
func (a *App) Close() error {
	err := a.closeMetrics()
	err = errors.Join(err, a.Files.Close())
	a.Store.Close()
	return err
}

func newMetrics(ctx context.Context, cfg config.MetricsConfig) (metrics.Backend, func() error, error) {
	switch cfg.Backend {
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    cfg.JobName,
			Tags:       cfg.Tags,
			FlushEvery: cfg.FlushInterval,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("datadog metrics: %w", err)
		}
		return b, b.Close, nil
	default:
		return metrics.Nop{}, func() error { return nil }, nil
	}
}
