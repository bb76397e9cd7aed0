package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/huntgate/internal/config"
	"github.com/playperu/huntgate/internal/database"
	"github.com/playperu/huntgate/internal/gate"
	"github.com/playperu/huntgate/internal/handler/health"
	"github.com/playperu/huntgate/internal/migrations"
	"github.com/playperu/huntgate/internal/server"
	"github.com/playperu/huntgate/internal/store"
	"github.com/playperu/huntgate/internal/store/redislock"
	"github.com/playperu/huntgate/internal/token"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "driver", cfg.DBDriver, "path", cfg.DBPath, "migrations_applied", applied)

	st := store.NewSQLiteStore(db)
	checks := map[string]health.Checker{
		"sqlite": health.CheckFunc(st.Ping),
		"redis":  nil,
	}

	// --- Device locks ---
	var locks gate.LockStore = st
	if cfg.LockBackend == config.LockBackendRedis {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		rl := redislock.New(rdb)
		locks = rl
		checks["redis"] = health.CheckFunc(rl.Ping)
		logger.Info("connected to redis", "purpose", "device locks")
	}

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, st); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	// --- Service ---
	secret := []byte(cfg.TokenSecret)
	issuer, err := token.New(secret, nil)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	broker := server.NewBroker()
	svc := gate.NewService(gate.Config{LockTTL: cfg.LockTTL},
		gate.Stores{Codes: st, Locks: locks, Config: st, Orders: st, Progress: st},
		issuer, token.NewFingerprintHasher(secret), broker, logger)

	if cfg.AdminKeyHash == "" {
		logger.Warn("ADMIN_KEY_HASH not set, admin api disabled")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Service:      svc,
		Admin:        st,
		Broker:       broker,
		Checks:       checks,
		AdminKeyHash: []byte(cfg.AdminKeyHash),
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	if cfg.LockSweepInterval > 0 {
		g.Go(func() error {
			sweepLocks(gctx, logger, svc.Binder(), cfg.LockSweepInterval)
			return nil
		})
	}

	return g.Wait()
}

// sweepLocks deletes expired device locks every interval until ctx ends.
// Failures are logged; bind never depends on the sweep.
func sweepLocks(ctx context.Context, logger *slog.Logger, binder *gate.DeviceBinder, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n, err := binder.Sweep(ctx)
			if err != nil {
				logger.Error("sweeping device locks", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("swept expired device locks", "count", n)
			}
		}
	}
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
