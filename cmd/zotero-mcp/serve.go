package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/zotero-mcp/internal/server"
	"github.com/Sternrassler/zotero-mcp/pkg/config"
	"github.com/Sternrassler/zotero-mcp/pkg/logging"
)

// runServe wires configuration, logging, and metrics together and serves
// the MCP tool surface on stdio until interrupted.
func runServe() error {
	cfg := config.Load()

	level := cfg.LogLevel
	if cfg.Debug {
		level = logging.LevelDebug
	}
	// Logs go to stderr; stdout belongs to the MCP protocol.
	logging.Setup(logging.Config{Level: level, Pretty: console, Output: os.Stderr})

	s, err := server.New(cfg, version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg.MetricsAddr)
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startMetricsServer exposes Prometheus metrics on addr until ctx is
// canceled. The endpoint is best effort next to the stdio transport, so
// listen failures are logged rather than fatal.
func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
}
