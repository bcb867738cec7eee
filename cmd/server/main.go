package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/assettrack/backend/internal/api"
	"github.com/assettrack/backend/internal/audit"
	"github.com/assettrack/backend/internal/clients"
	"github.com/assettrack/backend/internal/config"
	"github.com/assettrack/backend/internal/events"
	"github.com/assettrack/backend/internal/middleware"
	"github.com/assettrack/backend/internal/monitoring"
	"github.com/assettrack/backend/internal/notify"
	"github.com/assettrack/backend/internal/store"
)

func main() {
	// .env is optional; deployments set real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	var bus events.Publisher = events.NopPublisher{}
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.Error("redis url invalid", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		bus = events.NewBus(rdb, cfg.Redis.EventChannel)
	}

	authClient := clients.NewAuthClient(cfg.Services.AuthURL)
	locationClient := clients.NewLocationClient(cfg.Services.LocationURL)
	inventoryClient := clients.NewInventoryClient(cfg.Services.InventoryURL)
	notificationClient := clients.NewNotificationClient(cfg.Services.NotificationsURL, cfg.Services.InternalToken)

	notifier := notify.New(notificationClient, 2)
	defer notifier.Close()

	metrics := monitoring.NewMetrics()
	svc := audit.NewService(pg, inventoryClient, locationClient, notifier, bus, metrics)

	guard := middleware.NewRoleGuard(cfg.Roles)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer limiter.Close()

	server := api.NewServer(svc, authClient, guard, limiter, metrics)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("audit service listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
	}
}
