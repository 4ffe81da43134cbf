package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/slooze/slooze-web/internal/api"
	"github.com/slooze/slooze-web/internal/app"
	"github.com/slooze/slooze-web/internal/dashboard"
	"github.com/slooze/slooze-web/internal/observability"
	"github.com/slooze/slooze-web/internal/platform/cache"
	"github.com/slooze/slooze-web/internal/session"
	"github.com/slooze/slooze-web/internal/shared"
	"github.com/slooze/slooze-web/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	redisClient, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionSecret, "slooze_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	var registry *session.Registry
	metrics := observability.NewMetrics(func() int { return registry.Len() })
	apiClient := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, api.WithRecorder(metrics))
	registry = app.NewSessionRegistry(cfg, apiClient, redisClient, logger)

	dashboardHandler := dashboard.NewHandler(logger, templates, sessionManager, csrfManager, registry, app.LoginRateLimiter(cfg))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		DashboardHandler: dashboardHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// connectRedis dials REDIS_ADDR. Outside production an unreachable server
// is replaced by an in-process one so the front end still runs locally.
func connectRedis(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*redis.Client, error) {
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err == nil {
		return client, nil
	}
	if cfg.IsProduction() {
		return nil, err
	}
	logger.Warn("redis unreachable, using in-process store", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
	embedded, runErr := miniredis.Run()
	if runErr != nil {
		return nil, errors.Join(err, runErr)
	}
	return cache.New(ctx, embedded.Addr())
}
