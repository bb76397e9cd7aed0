// Command sweeplocks deletes expired device locks from the SQLite store
// once and exits. It is meant for cron when the in-process sweep is off.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/huntgate/internal/database"
	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/store"
)

type config struct {
	DBDriver string     `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/huntgate.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	binder := gate.NewDeviceBinder(store.NewSQLiteStore(db), nil, logger)
	n, err := binder.Sweep(ctx)
	if err != nil {
		return err
	}
	logger.Info("swept expired device locks", "count", n, "path", cfg.DBPath)
	return nil
}
