package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/homestock-backend/api"
	"github.com/angelmondragon/homestock-backend/api/routes"
	"github.com/angelmondragon/homestock-backend/internal/auth"
	"github.com/angelmondragon/homestock-backend/internal/gate"
	"github.com/angelmondragon/homestock-backend/internal/inventory"
	"github.com/angelmondragon/homestock-backend/internal/users"
	pkgAuth "github.com/angelmondragon/homestock-backend/pkg/auth"
	"github.com/angelmondragon/homestock-backend/pkg/config"
	"github.com/angelmondragon/homestock-backend/pkg/db"
	"github.com/angelmondragon/homestock-backend/pkg/logger"
	"github.com/angelmondragon/homestock-backend/pkg/metrics"
	"github.com/angelmondragon/homestock-backend/pkg/migrate"
	"github.com/angelmondragon/homestock-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	readiness := map[string]db.Pinger{"database": dbClient}

	var subjectCache *users.SubjectCache
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness["redis"] = redisClient
		subjectCache = users.NewSubjectCache(redisClient, cfg.Redis.SubjectTTL)
	} else {
		logg.Warn(ctx, "redis not configured, subject cache disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	userParams := users.ServiceParams{
		Repo:     users.NewRepository(dbClient.DB()),
		Password: cfg.Password,
		Logger:   logg,
	}
	if subjectCache != nil {
		userParams.Cache = subjectCache
	}
	userService, err := users.NewService(userParams)
	if err != nil {
		return err
	}

	tokens, err := pkgAuth.NewTokens(cfg.JWT)
	if err != nil {
		return err
	}

	authGate, err := gate.NewService(gate.ServiceParams{
		Tokens:   tokens,
		Subjects: userService,
		Metrics:  metrics.NewAuthMetrics(registry),
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          userService,
		Tokens:         tokens,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Store:   inventory.NewRepository(dbClient.DB()),
		Metrics: metrics.NewInventoryMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		Readiness:      readiness,
		Gate:           authGate,
		Auth:           authService,
		Inventory:      inventoryService,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"driver": dbClient.Driver(),
		"redis":  cfg.Redis.Enabled(),
	})
	logg.Info(logCtx, "starting api server")

	return api.Serve(ctx, api.NewServer(addr, handler), logg)
}
