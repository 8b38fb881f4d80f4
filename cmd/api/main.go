package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	server "ratings_dashboard/internal/adapters/http_server"
	"ratings_dashboard/internal/adapters/memory"
	"ratings_dashboard/internal/adapters/observability"
	redisad "ratings_dashboard/internal/adapters/redis"
	"ratings_dashboard/internal/adapters/tabular"
	"ratings_dashboard/internal/app"
	"ratings_dashboard/internal/domain"
	"ratings_dashboard/internal/shared"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}

	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	cache := newCache(cfg)
	finder := tabular.NewFinder(cfg.DataDir, cfg.DataPatterns)
	loader := app.NewLoader(tabular.NewReader(), cfg.LoadWorkers)
	q := app.NewQueryService(finder, loader, cache, cfg.CacheTTL, cfg.RescanInterval)

	// warm the cache so the first dashboard request does not pay for the load
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if ds, err := q.Dataset(ctx); err != nil {
		log.Error().Err(err).Msg("initial load failed")
	} else {
		log.Info().Str("dir", cfg.DataDir).Int("rows", len(ds.Reviews)).Int("files", len(ds.Files)).Msg("dataset ready")
	}
	cancel()

	// http
	srv := server.New(cfg.RequestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	if err := srv.Start(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// newCache prefers Redis when configured and reachable, else an in-process cache.
func newCache(cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		return memory.New()
	}
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; using in-memory cache")
		_ = rc.Close()
		return memory.New()
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache connected")
	return rc
}
