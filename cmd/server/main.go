package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Mamadi-exe/Snoofit/internal/auth"
	"github.com/Mamadi-exe/Snoofit/internal/config"
	"github.com/Mamadi-exe/Snoofit/internal/database"
	"github.com/Mamadi-exe/Snoofit/internal/handler/health"
	"github.com/Mamadi-exe/Snoofit/internal/migrations"
	"github.com/Mamadi-exe/Snoofit/internal/sensing"
	"github.com/Mamadi-exe/Snoofit/internal/server"
	"github.com/Mamadi-exe/Snoofit/internal/store"
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
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)
	st := store.New(db)

	// --- Redis (optional) ---
	var relay *server.RedisRelay
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		relay = server.NewRedisRelay(rdb, logger)
		logger.Info("connected to redis")
	}

	// --- Engines ---
	broker := server.NewBroker()
	players := server.NewRegistry(st, broker, relay, server.RegistryConfig{
		SensingMode: cfg.Sensing.Mode,
		Intervals: sensing.Intervals{
			Step:     cfg.Sensing.StepInterval,
			Geofence: cfg.Sensing.GeofenceInterval,
			Grace:    cfg.Sensing.GraceInterval,
		},
		ActivityLimit: cfg.ActivityLimit,
	}, logger)

	if cfg.JWTSecretGenerated {
		logger.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin endpoints disabled")
	}

	checks := map[string]health.Checker{"sqlite": st}
	if relay != nil {
		checks["redis"] = relay
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Players: players,
		Store:   st,
		Tokens:  auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Broker:  broker,
		Admin: server.AdminCredentials{
			User:         cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
		},
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "sensing", cfg.Sensing.Mode)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return players.Run(gctx, cfg.FlushInterval)
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		if err := srv.Shutdown(context.Background()); err != nil {
			return err
		}
		logger.Info("saving player states")
		return players.Close(context.Background())
	})

	return g.Wait()
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
