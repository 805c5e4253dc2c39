package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/config"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/seed"
	"github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse"
	warehouseduckdb "github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse/duckdb"
	warehousepostgres "github.com/prashanthpaul/real-time-bi-copilot/internal/warehouse/postgres"
)

func main() {
	salesRows := flag.Int("sales-rows", seed.DefaultSalesRows, "number of sales transactions to generate")
	customerRows := flag.Int("customer-rows", seed.DefaultCustomerRows, "number of customers to generate")
	randomSeed := flag.Int64("seed", seed.DefaultSeed, "random seed; the same seed always produces the same data")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("bicopilot-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := openWarehouse(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warehouse open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	seeder := seed.NewSeeder(store, logger)
	summary, err := seeder.Run(ctx, seed.Options{
		SalesRows:    *salesRows,
		CustomerRows: *customerRows,
		Seed:         *randomSeed,
	})
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("seeded %d sales, %d customers, %d products in %s\n",
		summary.SalesRows, summary.CustomerRows, summary.ProductRows, summary.Duration.Round(time.Millisecond))
}

func openWarehouse(ctx context.Context, cfg config.Config) (*warehouse.DBStore, error) {
	switch cfg.Warehouse.Driver {
	case "duckdb":
		db, err := warehouseduckdb.Open(ctx, cfg.Warehouse.Path)
		if err != nil {
			return nil, err
		}
		return warehouse.NewDBStore(db), nil
	case "postgres":
		db, err := warehousepostgres.Open(ctx, warehousepostgres.Config{
			DSN:             cfg.Warehouse.DSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return warehouse.NewDBStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}
