package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/competition-engine/brackets"
	"github.com/Dosada05/competition-engine/config"
	"github.com/Dosada05/competition-engine/db"
	"github.com/Dosada05/competition-engine/handlers"
	"github.com/Dosada05/competition-engine/metrics"
	"github.com/Dosada05/competition-engine/repositories"
	api "github.com/Dosada05/competition-engine/routes"
	"github.com/Dosada05/competition-engine/services"
	"github.com/Dosada05/competition-engine/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("store", cfg.StoreDriver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open document store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	metricsManager := metrics.NewManager()

	wsHub := brackets.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	opts := []services.Option{
		services.WithConfig(cfg.Engine()),
		services.WithNotifier(wsHub),
		services.WithMetrics(metricsManager),
	}
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts, services.WithArchiver(storage.NewResultsArchiver(uploader, "", logger)))
		logger.Info("results archive enabled", slog.String("bucket", cfg.R2BucketName))
	}

	coordinator := services.NewCoordinator(store, cfg.Coordinator(), logger, metricsManager)
	engine := services.NewEngine(coordinator, logger, opts...)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{JWTSecret: cfg.JWTSecretKey, AllowedOrigins: cfg.AllowedOrigins, Metrics: metricsManager},
		handlers.NewCompetitionHandler(engine),
		handlers.NewMatchHandler(engine),
		handlers.NewRatingHandler(engine),
		handlers.NewWebSocketHandler(wsHub, engine, cfg.AllowedOrigins, logger),
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

// openStore returns the configured document store and a function that
// releases it.
func openStore(cfg *config.Config, logger *slog.Logger) (repositories.DocumentStore, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using the in-memory document store; data is lost on restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(dbConn); err != nil {
			closeDB(dbConn, logger)
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}
	logger.Info("database connection established")
	return repositories.NewPostgresStore(dbConn), func() { closeDB(dbConn, logger) }, nil
}

func closeDB(dbConn *sql.DB, logger *slog.Logger) {
	if err := dbConn.Close(); err != nil {
		logger.Error("failed to close database connection", slog.Any("error", err))
		return
	}
	logger.Info("database connection closed")
}
