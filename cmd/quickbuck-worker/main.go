package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"quickbuck/internal/config"
	"quickbuck/internal/db"
	"quickbuck/internal/engine"
	"quickbuck/internal/lease"
	"quickbuck/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.New(pool)
	if err := store.Migrate(ctx); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	var ls lease.Lease
	if cfg.RedisAddr != "" {
		ls = lease.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		ls = lease.NewPostgres(pool)
	}
	eng := engine.New(store, ls, logger, cfg.Engine)

	if cfg.StartupSeed {
		if err := eng.SeedDefaults(ctx); err != nil {
			logger.Error("seed defaults failed", "err", err)
			os.Exit(1)
		}
	}

	if cfg.WorkerRunOnce {
		if _, err := eng.RunCycle(ctx, "run-once"); err != nil {
			logger.Error("tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			result, err := eng.RunCycle(ctx, "scheduled")
			if err != nil {
				// Losing the lock race to another runner is routine, not a fault.
				if errors.Is(err, engine.ErrCycleRunning) {
					logger.Info("cycle already running elsewhere, skipping")
					continue
				}
				logger.Error("tick failed", "err", err)
				continue
			}
			logger.Info("tick complete",
				"tick", result.TickNumber,
				"purchases", result.PurchaseCount,
				"stock_updates", result.StockUpdateCount,
				"crypto_updates", result.CryptoUpdateCount)
		}
	}
}
