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

	_ "github.com/lib/pq"

	"github.com/bracketforge/bracketforge/brackets"
	"github.com/bracketforge/bracketforge/config"
	"github.com/bracketforge/bracketforge/db"
	"github.com/bracketforge/bracketforge/handlers"
	"github.com/bracketforge/bracketforge/repositories"
	"github.com/bracketforge/bracketforge/routes"
	"github.com/bracketforge/bracketforge/services"
	"github.com/bracketforge/bracketforge/storage"
)

// archiveSweepInterval is how often completed tournaments are checked
// against the archive cutoff.
const archiveSweepInterval = 1 * time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.RunMigrations(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
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
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, archiving disabled")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	matchLogRepo := repositories.NewPostgresMatchLogRepository(dbConn)

	ratingService := services.NewRatingService(ratingRepo)
	seedingService := services.NewSeedingService(ratingService)
	bracketService := services.NewBracketService(
		dbConn, tournamentRepo, entryRepo, matchRepo, seedingService, wsHub, logger)
	matchService := services.NewMatchService(
		tournamentRepo, entryRepo, matchRepo, matchLogRepo, ratingService, bracketService, wsHub, logger)
	tournamentService := services.NewTournamentService(
		dbConn, tournamentRepo, entryRepo, matchRepo, ratingRepo, bracketService, uploader, logger)
	logger.Info("services initialized")

	if uploader != nil {
		go runArchiveScheduler(tournamentService, cfg.ArchiveAfterHours, logger)
	}

	h := routes.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Match:      handlers.NewMatchHandler(matchService),
		Rating:     handlers.NewRatingHandler(ratingService, matchLogRepo),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService, logger),
	}
	router := routes.InitRoutes(h, cfg.JWTSecretKey)
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
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

// runArchiveScheduler periodically archives tournaments that finished more
// than the configured number of hours ago.
func runArchiveScheduler(tournamentService services.TournamentService, afterHours int, logger *slog.Logger) {
	ticker := time.NewTicker(archiveSweepInterval)
	defer ticker.Stop()
	logger.Info("archive scheduler started",
		slog.Duration("interval", archiveSweepInterval),
		slog.Int("archive_after_hours", afterHours))

	for range ticker.C {
		cutoff := time.Now().UTC().Add(-time.Duration(afterHours) * time.Hour)
		archived, err := tournamentService.ArchiveCompletedBefore(context.Background(), cutoff)
		if err != nil {
			logger.Error("archive sweep failed", slog.Any("error", err))
			continue
		}
		if archived > 0 {
			logger.Info("archive sweep completed", slog.Int("archived", archived))
		}
	}
}
