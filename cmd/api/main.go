package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/prostorehq/prostore-backend/api/routes"
	cartsvc "github.com/prostorehq/prostore-backend/internal/cart"
	productsvc "github.com/prostorehq/prostore-backend/internal/products"
	usersvc "github.com/prostorehq/prostore-backend/internal/users"
	"github.com/prostorehq/prostore-backend/pkg/config"
	"github.com/prostorehq/prostore-backend/pkg/db"
	"github.com/prostorehq/prostore-backend/pkg/logger"
	"github.com/prostorehq/prostore-backend/pkg/metrics"
	"github.com/prostorehq/prostore-backend/pkg/migrate"
	"github.com/prostorehq/prostore-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	cartMetrics := metrics.NewCartMetrics(registry)

	productRepo := productsvc.NewRepository(dbClient.DB())
	productService, err := productsvc.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartsvc.NewRepository(dbClient.DB()), dbClient, productRepo, cartMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	userService, err := usersvc.NewService(usersvc.ServiceParams{
		UserRepo:       usersvc.NewRepository(dbClient.DB()),
		CartMerger:     cartService,
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Products:    productService,
			Carts:       cartService,
			Users:       userService,
			HTTPMetrics: httpMetrics,
			Registry:    registry,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			closeResources(ctx, logg, dbClient, redisClient)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	closeResources(ctx, logg, dbClient, redisClient)
	logg.Info(ctx, "api server stopped")
}

func closeResources(ctx context.Context, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) {
	err := multierr.Combine(dbClient.Close(), redisClient.Close())
	if err != nil {
		logg.Error(ctx, "error closing resources", err)
	}
}
