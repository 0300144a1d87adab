package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/go-user-auth/app/db"
	appLogger "github.com/FACorreiaa/go-user-auth/app/logger"
	"github.com/FACorreiaa/go-user-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-user-auth/app/tracer"
	"github.com/FACorreiaa/go-user-auth/config"
	"github.com/FACorreiaa/go-user-auth/internal/api/auth"
	"github.com/FACorreiaa/go-user-auth/internal/container"
	api "github.com/FACorreiaa/go-user-auth/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics before the container so instruments exist when the first
	// request arrives.
	metricsHandler, err := tracer.InitMetrics("go-user-auth")
	if err != nil {
		logger.Error("Failed to initialize metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()

	c, err := container.NewContainer(&cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize dependencies", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	if !database.WaitForDB(ctx, c.Pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	mainRouter := api.SetupRouter(&api.Config{
		AuthHandler:            c.AuthHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, c.TokenService),
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures the application logger: colored tint output in
// development, JSON elsewhere.
func setupLogger(mode string) *slog.Logger {
	if mode == "development" || mode == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		return slog.New(tint.NewHandler(os.Stdout, tintOpts))
	}

	jsonOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
}
