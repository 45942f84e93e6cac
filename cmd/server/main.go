package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	imageproxyhandlers "Lightbox/internal/api/handlers/imageproxy"
	"Lightbox/internal/api/routes"
	"Lightbox/internal/core/imageproxy"
)

func main() {
	cfg := imageproxy.ConfigFromEnv()

	service, cache, err := imageproxy.NewServiceFromConfig(cfg)
	if err != nil {
		log.Fatal("Failed to initialize image proxy:", err)
	}

	stopCleanup := cache.StartCleanupJob(cfg.CleanupInterval)
	defer stopCleanup()

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	routes.RegisterImageProxyRoutes(r, imageproxyhandlers.NewHandler(service))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("[IMAGE-PROXY] image proxy running",
			"port", port,
			"cache_max_entries", cfg.CacheMaxEntries,
			"fetch_timeout", cfg.FetchTimeout,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()

	<-ctx.Done()
	slog.Info("[IMAGE-PROXY] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[IMAGE-PROXY] graceful shutdown failed", "error", err)
	}
}
