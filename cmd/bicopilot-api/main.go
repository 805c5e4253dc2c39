package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/ai"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/analyze"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/anomaly"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/api"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/archive"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/auth"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/cache"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/catalog"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/config"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/copilot"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/history"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/insight"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/nl2sql"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	s3store "github.com/prashanthpaul/real-time-bi-copilot/internal/storage/s3"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
	warehouseduckdb "github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse/duckdb"
	warehousepostgres "github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse/postgres"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/workflows"
)

func main() {
	// Local .env files are a convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("bicopilot-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := openWarehouse(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	store := warehouse.NewDBStore(db)
	defer func() { _ = store.Close() }()

	inspector := catalog.NewInspector(store, schemaForDriver(cfg.Warehouse.Driver), cfg.Catalog.SampleRows)

	var aiClient ai.Client
	var aiUsage func() ai.UsageStats
	retry := ai.RetryPolicy{MaxAttempts: 2, Backoff: cfg.AI.RetryBackoff}
	if cfg.AI.Enabled {
		client, err := ai.NewAnthropicClient(ai.AnthropicConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize AI client", slog.Any("error", err))
			os.Exit(1)
		}
		aiClient = client
		aiUsage = client.UsageStats
	}

	var translator nl2sql.Translator
	var synthesizer *insight.Synthesizer
	if aiClient != nil {
		translator = nl2sql.NewAITranslator(aiClient, inspector, retry)
		synthesizer = insight.NewSynthesizer(store, aiClient, retry)
	}

	historyStore := history.NewRingStore(cfg.History.Capacity)

	var queryCache cache.Provider
	if cfg.Cache.Enabled {
		queryCache = cache.NewMemoryProvider()
	}

	dispatcher := copilot.NewDispatcher(copilot.Dependencies{
		Store:       store,
		Translator:  translator,
		Analyzer:    analyze.NewAnalyzer(store, inspector),
		Detector:    anomaly.NewDetector(store, aiClient, retry, logger),
		Synthesizer: synthesizer,
		History:     historyStore,
		Cache:       queryCache,
		CacheTTL:    cfg.Cache.TTL,
		Logger:      logger,
	})

	registry := workflows.NewRegistry()
	if cfg.Workflows.PackPath != "" {
		if err := registry.LoadPack(cfg.Workflows.PackPath); err != nil {
			logger.Error("failed to load workflow pack", slog.Any("error", err))
			os.Exit(1)
		}
	}

	readiness := []api.ReadinessCheck{api.CheckWarehouse(store)}

	var archiveService *archive.Service
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		archiveService = &archive.Service{
			Warehouse:   store,
			ObjectStore: objectStore,
			Config: archive.Config{
				Tables:   cfg.ArchiveTables(),
				Interval: cfg.Archive.Interval,
			},
			Logger: logger,
		}
		readiness = append(readiness, api.CheckObjectStoreConfig(cfg))
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
		Dispatcher:        dispatcher,
		Translator:        translator,
		Catalog:           inspector,
		History:           historyStore,
		Workflows:         registry,
		AIUsage:           aiUsage,
		Started:           time.Now(),
	}
	if archiveService != nil {
		deps.Archive = archiveService
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		if validator.Empty() {
			logger.Error("auth is required but BICOPILOT_AUTH_STATIC_KEYS is empty")
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.RequireRole(logger, validator, auth.RoleReader)
		deps.AdminMiddleware = auth.RequireRole(logger, validator, auth.RoleAdmin)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if archiveService != nil {
		go func() {
			logger.Info("archive loop started", slog.Duration("interval", cfg.Archive.Interval))
			if err := archiveService.Run(ctx); err != nil {
				logger.Error("archive loop failed", slog.Any("error", err))
			}
		}()
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("warehouse", cfg.Warehouse.Driver),
			slog.Bool("ai_enabled", cfg.AI.Enabled))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openWarehouse(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	switch cfg.Warehouse.Driver {
	case "duckdb":
		return warehouseduckdb.Open(ctx, cfg.Warehouse.Path)
	case "postgres":
		return warehousepostgres.Open(ctx, warehousepostgres.Config{
			DSN:             cfg.Warehouse.DSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}

func schemaForDriver(driver string) string {
	if driver == "postgres" {
		return "public"
	}
	return "main"
}
