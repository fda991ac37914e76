package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mercadomaster/economy-engine/internal/api"
	"github.com/mercadomaster/economy-engine/internal/config"
	"github.com/mercadomaster/economy-engine/internal/cronrunner"
	"github.com/mercadomaster/economy-engine/internal/market"
	"github.com/mercadomaster/economy-engine/internal/progression"
	"github.com/mercadomaster/economy-engine/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	st, cleanup, err := openStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run(ctx)

	// --- Market clock ---
	seed := cfg.Market.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	clock, err := market.NewClock(cfg.Market.Clock(), rng, wsHub)
	if err != nil {
		slog.Error("market init failed", "err", err)
		os.Exit(1)
	}
	slog.Info("market seeded", "seed", seed, "symbols", clock.Symbols())

	go func() {
		if err := clock.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("market clock error", "err", err)
		}
	}()

	// --- Progression controller ---
	ctrl, err := progression.New(ctx, st, cfg.Store.ProfileID, wsHub)
	if err != nil {
		slog.Error("profile load failed", "err", err)
		os.Exit(1)
	}

	// --- Scheduled jobs ---
	if cfg.Cron.Enabled {
		runner := cronrunner.New(ctx)
		if _, err := runner.Add("quest_reset", cfg.Cron.QuestReset, func(ctx context.Context) error {
			_, err := ctrl.ResetDailyQuests(ctx)
			return err
		}); err != nil {
			slog.Error("cron init failed", "err", err)
			os.Exit(1)
		}
		runner.Start()
		defer runner.Stop()
	}

	// --- Server ---
	svc := api.NewService(ctrl, clock)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(svc, wsHub),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("economy-engine listening", "port", cfg.Server.Port, "profile", cfg.Store.ProfileID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down economy-engine...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("economy-engine stopped")
}

// openStore picks PostgreSQL when a database URL is configured, optionally
// fronted by Redis, and falls back to memory otherwise.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		return store.NewMemoryStore(), closeAll, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, closeAll, fmt.Errorf("database connection failed: %w", err)
	}
	cleanup = append(cleanup, pool.Close)

	pg := store.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		closeAll()
		return nil, func() {}, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("connected to PostgreSQL")

	var st store.Store = pg
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		st = store.NewCachedStore(pg, rdb, cfg.CacheTTL)
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
	}
	return st, closeAll, nil
}
