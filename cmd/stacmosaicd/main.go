package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/geoplex/stacmosaic"
	"github.com/geoplex/stacmosaic/internal/codec"
	"github.com/geoplex/stacmosaic/internal/config"
	logpkg "github.com/geoplex/stacmosaic/internal/logger"
	"github.com/geoplex/stacmosaic/internal/metrics"
	chiTransport "github.com/geoplex/stacmosaic/internal/transport/chi"
	"github.com/geoplex/stacmosaic/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting stacmosaic tile server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("stac_url", cfg.STAC.URL),
		zap.Int("mosaic_concurrency", cfg.Mosaic.Concurrency),
	)

	httpClient := &http.Client{Timeout: time.Duration(cfg.Mosaic.ReadTimeoutSec) * time.Second}

	client := stacmosaic.New(
		codec.NewPNG(httpClient),
		stacmosaic.WithHTTPClient(httpClient),
		stacmosaic.WithAlternateHrefKey(cfg.STAC.AlternateHrefKey),
		stacmosaic.WithConcurrency(cfg.Mosaic.Concurrency),
		stacmosaic.WithReadTimeout(time.Duration(cfg.Mosaic.ReadTimeoutSec)*time.Second),
		stacmosaic.WithCollectionCache(
			time.Duration(cfg.Cache.CollectionTTLSec)*time.Second,
			cfg.Cache.CollectionSize,
		),
		stacmosaic.WithDefaults(cfg.Mosaic.DefaultLimit, cfg.Mosaic.DefaultMaxItems),
	)

	server := chiTransport.NewServer(client, cfg.STAC.URL, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer turns panics into JSON 500s instead of chi's plain text.
func jsonRecoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
