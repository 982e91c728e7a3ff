// Tool Orchestration Proxy Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/voxhub/toolproxy/internal/api"
	"github.com/voxhub/toolproxy/internal/catalog"
	"github.com/voxhub/toolproxy/internal/config"
	"github.com/voxhub/toolproxy/internal/connection"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/events"
	"github.com/voxhub/toolproxy/internal/identity"
	"github.com/voxhub/toolproxy/internal/metrics"
	"github.com/voxhub/toolproxy/internal/middleware"
	"github.com/voxhub/toolproxy/internal/session"
	"github.com/voxhub/toolproxy/internal/store"
	"github.com/voxhub/toolproxy/internal/upstream"
	"github.com/voxhub/toolproxy/internal/workflow"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if closeErr := rdb.Close(); closeErr != nil {
			slog.Error("Failed to close redis client", "error", closeErr)
		}
	}()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis health check failed", "error", err, "addr", cfg.RedisAddr)
		os.Exit(1)
	}
	slog.Info("Redis connected", "addr", cfg.RedisAddr)

	backend, err := upstream.NewClient(upstream.Config{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize upstream client", "error", err)
		os.Exit(1)
	}
	if err := backend.Health(context.Background()); err != nil {
		// The proxy can start before the backend; workflows will fail with
		// upstream_unavailable until it comes up.
		slog.Warn("Upstream backend not reachable at startup", "error", err, "url", cfg.Upstream.BaseURL)
	} else {
		slog.Info("Upstream backend connected", "url", cfg.Upstream.BaseURL)
	}

	// Initialize services.
	registry := session.NewRegistry(repo, cfg.SessionTTL)
	catalogClient := catalog.NewClient(backend)
	connManager := connection.NewManager(rdb, backend, cfg.PendingTTL)
	executor := workflow.NewExecutor(backend, registry, connManager, cfg.StepTimeout)

	hub := events.NewHub()
	executor.SetObserver(func(sessionID string, res domain.StepResult) {
		hub.Publish(events.StepEvent{
			SessionID: sessionID,
			ToolSlug:  res.ToolSlug,
			Toolkit:   res.Toolkit,
			Status:    string(res.Status),
			Reason:    string(res.Reason),
			Error:     res.Error,
			At:        time.Now(),
		})
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(registry, catalogClient, executor, connManager)
	healthHandler := api.NewHealthHandler(repo, backend)
	wsHandler := events.NewWebSocketHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware())

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)

	// Observability endpoints.
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws/events", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived websocket event streams
		IdleTimeout:  120 * time.Second,
	}

	// Start background workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartSweeper(ctx, repo, cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
