// Command examcached serves extraction status, health, diagnostics,
// and keyword search over HTTP for a running cache. Reads are served
// straight from the cache's metadata files; /extract runs one
// question paper through the pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/declanmoore/examcache"
	"github.com/go-chi/chi/v5"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := examcache.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	pipeline, err := examcache.New(cfg)
	if err != nil {
		slog.Error("creating pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	apiKey := os.Getenv("EXAMCACHE_API_KEY")
	corsOrigins := os.Getenv("EXAMCACHE_CORS_ORIGINS")

	h := newHandler(pipeline, cfg)
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(corsMiddleware(corsOrigins))
	r.Use(authMiddleware(apiKey))
	r.Use(logMiddleware)

	r.Get("/health", h.handleHealth)
	r.Get("/status", h.handleStatus)
	r.Post("/extract", h.handleExtract)
	r.Get("/diagnostics/{examCode}", h.handleDiagnostics)
	r.Get("/search", h.handleSearch)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // /extract can run long for large PDFs
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
