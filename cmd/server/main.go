// plate-labs - 96-well plate research tracker server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/plate-labs/internal/api"
	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/chat"
	"github.com/ashureev/plate-labs/internal/config"
	"github.com/ashureev/plate-labs/internal/conversation"
	"github.com/ashureev/plate-labs/internal/convlog"
	"github.com/ashureev/plate-labs/internal/document"
	"github.com/ashureev/plate-labs/internal/document/fs"
	"github.com/ashureev/plate-labs/internal/document/memory"
	"github.com/ashureev/plate-labs/internal/document/s3"
	"github.com/ashureev/plate-labs/internal/identity"
	"github.com/ashureev/plate-labs/internal/metrics"
	"github.com/ashureev/plate-labs/internal/middleware"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/ashureev/plate-labs/internal/research"
	"github.com/ashureev/plate-labs/internal/store"
	"github.com/ashureev/plate-labs/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closed plate archive (optional).
	var repo store.Repository
	var archiver bot.Archiver
	if cfg.ArchiveEnabled {
		repo, err = store.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := repo.Ping(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		archiver = repo
		slog.Info("Archive database connected", "path", cfg.DBPath)
	} else {
		slog.Info("Closed plate archive disabled")
	}

	docs, err := newDocumentStore(ctx, cfg.Document)
	if err != nil {
		slog.Error("Failed to initialize document store", "error", err)
		os.Exit(1)
	}
	slog.Info("Document store ready", "driver", docs.Driver())

	conversationLogger, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxOpenFiles:  cfg.ConversationLog.MaxOpenFiles,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Core.
	recorder := metrics.New()
	registry := research.NewRegistry()
	tracker := conversation.NewTracker()
	orch := bot.New(registry, tracker, bot.Options{
		Publisher: render.NewPublisher(docs, cfg.Document.BaseURL),
		Archiver:  archiver,
		Observer:  recorder,
	})
	conversation.StartSweeper(ctx, tracker, cfg.PromptTTL)

	// Handlers.
	sm := chat.NewSessionManager()
	apiHandler := api.NewHandler(orch, docs, api.Options{
		Archive:         repo,
		ConversationLog: conversationLogger,
		MaxBodySize:     cfg.MaxRequestBodySize,
	})
	healthHandler := api.NewHealthHandler(repo, registry)
	wsHandler := chat.NewWebSocketHandler(orch, sm, conversationLogger, cfg.FrontendURL, cfg.IsDevelopment())
	wsHandler.SetReadLimit(cfg.MaxRequestBodySize)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(middleware.Origins(cfg.FrontendURL), identity.SessionHeaderName))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Method(http.MethodGet, "/metrics", recorder.Handler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

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
	sm.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully", "open_researches", registry.Len())
}

func newDocumentStore(ctx context.Context, cfg config.DocumentConfig) (document.Store, error) {
	switch document.Driver(cfg.Driver) {
	case document.DriverMemory:
		return memory.New(), nil
	case document.DriverFilesystem:
		return fs.New(cfg.Dir)
	case document.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown document driver %q", cfg.Driver)
	}
}
