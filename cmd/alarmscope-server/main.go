// Package main is the entry point for the alarmscope server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mervekesknn/db-protection-insight/internal/archive"
	"github.com/mervekesknn/db-protection-insight/internal/config"
	"github.com/mervekesknn/db-protection-insight/internal/export"
	"github.com/mervekesknn/db-protection-insight/internal/fetch"
	"github.com/mervekesknn/db-protection-insight/internal/server"
	"github.com/mervekesknn/db-protection-insight/internal/snapshot"
	"github.com/mervekesknn/db-protection-insight/internal/storage"
)

func main() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("ALARMSCOPE_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_enabled", cfg.Auth.Enabled,
		"storage_enabled", cfg.Storage.Enabled,
		"cache_enabled", cfg.Cache.Enabled,
		"export_enabled", cfg.Export.Enabled,
		"archive_enabled", cfg.Archive.Enabled,
	)

	ctx := context.Background()

	store := snapshot.NewStore()
	handler := server.NewHandler(store).
		WithMaxPayload(cfg.Import.MaxPayloadSize).
		WithTopDefault(cfg.Import.TopDefault)

	// Initialize storage if enabled
	var chClient *storage.ClickHouseClient
	var batchWriter *storage.BatchWriter

	if cfg.Storage.Enabled {
		slog.Info("initializing ClickHouse storage",
			"hosts", cfg.Storage.ClickHouse.Hosts,
			"database", cfg.Storage.ClickHouse.Database,
		)

		chConfig := storage.ClickHouseConfig{
			Hosts:           cfg.Storage.ClickHouse.Hosts,
			Database:        cfg.Storage.ClickHouse.Database,
			Username:        cfg.Storage.ClickHouse.Username,
			Password:        cfg.Storage.ClickHouse.Password,
			MaxOpenConns:    cfg.Storage.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.ClickHouse.ConnMaxLifetime,
			TLSEnabled:      cfg.Storage.ClickHouse.TLSEnabled,
			DialTimeout:     cfg.Storage.ClickHouse.DialTimeout,
		}

		chClient, err = storage.NewClickHouseClient(chConfig)
		if err != nil {
			slog.Error("failed to connect to ClickHouse", "error", err)
			os.Exit(1)
		}

		slog.Info("running database migrations")
		migrator := storage.NewMigrator(chClient)
		if err := migrator.Run(ctx); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		bwConfig := storage.BatchWriterConfig{
			BatchSize:     cfg.Storage.BatchWriter.BatchSize,
			FlushInterval: cfg.Storage.BatchWriter.FlushInterval,
			MaxRetries:    cfg.Storage.BatchWriter.MaxRetries,
			RetryDelay:    cfg.Storage.BatchWriter.RetryDelay,
		}
		batchWriter = storage.NewBatchWriter(chClient, bwConfig)
		handler.WithWriter(batchWriter)

		slog.Info("storage initialized successfully")
	}

	// Initialize snapshot cache if enabled
	var cache *server.Cache
	if cfg.Cache.Enabled {
		cache, err = server.NewCache(server.CacheConfig{
			Address:  cfg.Cache.Address,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		handler.WithCache(cache)
		slog.Info("snapshot cache initialized", "address", cfg.Cache.Address)
	}

	// Initialize record export if enabled
	var publisher *export.Publisher
	if cfg.Export.Enabled {
		publisher = export.NewPublisher(export.Config{
			Brokers:    cfg.Export.Brokers,
			Topic:      cfg.Export.Topic,
			MaxRetries: cfg.Export.MaxRetries,
			RetryDelay: cfg.Export.RetryDelay,
		}, logger)
		handler.WithPublisher(publisher)
	}

	// Initialize raw-upload archival if enabled
	if cfg.Archive.Enabled {
		archiver, err := archive.NewClient(ctx, archive.Config{
			Region:          cfg.Archive.Region,
			Bucket:          cfg.Archive.Bucket,
			Prefix:          "uploads/",
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UsePathStyle:    cfg.Archive.UsePathStyle,
		}, logger)
		if err != nil {
			slog.Error("failed to initialize archive client", "error", err)
			os.Exit(1)
		}
		handler.WithArchiver(archiver)
	}

	// Initialize upstream fetch if configured
	if cfg.Fetch.BaseURL != "" {
		fetcher := fetch.NewClient(fetch.Config{
			BaseURL: cfg.Fetch.BaseURL,
			APIKey:  cfg.Fetch.APIKey,
			Timeout: cfg.Fetch.Timeout,
		}, logger)
		handler.WithFetcher(fetcher)
		slog.Info("upstream fetch enabled", "base_url", cfg.Fetch.BaseURL)
	}

	// Setup HTTP routes
	mux := http.NewServeMux()
	handler.Routes(mux)

	// Apply middleware
	wrappedHandler := server.WithMiddleware(mux, cfg)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      wrappedHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server
	go func() {
		slog.Info("starting alarmscope server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			slog.Error("publisher close error", "error", err)
		}
		published, failed := publisher.Metrics()
		slog.Info("export metrics",
			"records_published", published,
			"records_failed", failed,
		)
	}

	if cache != nil {
		if err := cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
		}
	}

	if batchWriter != nil {
		if err := batchWriter.Close(); err != nil {
			slog.Error("batch writer close error", "error", err)
		}
		bwMetrics := batchWriter.Metrics()
		slog.Info("storage metrics",
			"rows_written", bwMetrics.Written,
			"rows_failed", bwMetrics.Failed,
			"batches", bwMetrics.Batches,
		)
	}

	if chClient != nil {
		if err := chClient.Close(); err != nil {
			slog.Error("clickhouse close error", "error", err)
		}
	}

	slog.Info("shutdown complete")
}
