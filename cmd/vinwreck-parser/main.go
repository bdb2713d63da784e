package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"vinwreck-parser/internal/app"
	"vinwreck-parser/internal/config"
	"vinwreck-parser/internal/fetcher"
	"vinwreck-parser/internal/filter"
	"vinwreck-parser/internal/observability"
	"vinwreck-parser/internal/scraper"
	"vinwreck-parser/internal/storage"
	"vinwreck-parser/internal/storage/blob"
	"vinwreck-parser/internal/storage/mssql"
	"vinwreck-parser/internal/storage/postgres"
	"vinwreck-parser/internal/storage/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel)
	defer logger.Close()

	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open datastore", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	blobs, err := openBlobStore(cfg)
	if err != nil {
		logger.Error("Failed to open blob store", "driver", cfg.Blob.Driver, "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	orch := app.NewOrchestrator(
		cfg,
		logger,
		metrics,
		fetcher.NewFetcher(cfg, logger),
		scraper.NewScraper(cfg.Source.Origin, cfg.Photos.MaxPerLot),
		filter.New(cfg.Filter.AllowKeywords, cfg.Filter.DenyKeywords),
		repo,
		blobs,
	)

	logger.Info("vinwreck-parser started",
		"config", configPath,
		"storage", cfg.Storage.Driver,
		"blob", cfg.Blob.Driver,
		"scheduler", cfg.Scheduler.Mode,
		"urls", len(cfg.Source.LotURLs),
	)

	job := func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		if werr := metrics.WriteTextfile(cfg.Observability.MetricsPath); werr != nil {
			logger.Warn("Failed to write metrics", "path", cfg.Observability.MetricsPath, "error", werr)
		}
		return err
	}

	err = app.RunScheduled(ctx, cfg.Scheduler, logger, job)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Warn("Run cancelled")
	default:
		logger.Error("Run aborted", "error", err)
		repo.Close()
		logger.Close()
		os.Exit(1)
	}

	logger.Info("vinwreck-parser stopped")
}

func openRepository(ctx context.Context, cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case "mssql":
		return mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), cfg.Storage.MaxConnections, logger)
	case "postgres":
		return postgres.NewRepository(ctx, cfg.Storage.DSN, cfg.GetCommandTimeout(), cfg.Storage.MaxConnections, cfg.Storage.ViaBouncer, logger)
	case "sqlite":
		return sqlite.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

func openBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Blob.Driver {
	case "supabase":
		return blob.NewSupabase(cfg.Blob.URL, cfg.Blob.ServiceKey, cfg.Blob.Bucket, cfg.GetTotalTimeout())
	case "local":
		return blob.NewLocal(cfg.Blob.Dir, cfg.Blob.Bucket)
	default:
		return nil, fmt.Errorf("unknown blob driver: %s", cfg.Blob.Driver)
	}
}
