package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"circuitguard/internal/client"
	"circuitguard/internal/config"
	hhttp "circuitguard/internal/handler/http"
	"circuitguard/internal/handler/http/requestid"
	"circuitguard/internal/observability/logging"
	"circuitguard/internal/observability/tracing"
	pkgconfig "circuitguard/internal/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	registry := initRegistry(logger)
	port := loadPort(logger)

	handler := applyMiddleware(setupRoutes(registry))
	runServer(logger, handler, port)
}

// initRegistry loads the service catalog and builds the client facade.
func initRegistry(logger *slog.Logger) *client.Registry {
	path := os.Getenv("SERVICES_CONFIG")
	if path == "" {
		path = "services.yaml"
	}

	cfg, err := config.LoadRegistry(path)
	if err != nil {
		logger.Error("failed to load service catalog",
			slog.String("path", path),
			slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("service catalog loaded",
		slog.String("path", path),
		slog.Int("services", len(cfg.Services)))

	return client.NewRegistry(cfg, newHTTPClient(), logger)
}

func loadPort(logger *slog.Logger) int {
	result := pkgconfig.Int("GATEWAY_PORT", 3000, pkgconfig.IntRange(1, 65535))
	if result.FallbackApplied {
		logger.Warn("gateway port fallback applied", slog.String("warning", result.Warning))
	}
	return result.Value
}

// newHTTPClient builds the outbound client shared by all circuit-protected
// calls. Per-attempt timeouts are applied by the executor, so no client-wide
// timeout is set here.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

func setupRoutes(registry *client.Registry) http.Handler {
	resetSecret := os.Getenv("RESET_JWT_SECRET")

	mux := http.NewServeMux()
	mux.Handle("/circuit-status", hhttp.StatusHandler(registry))
	mux.Handle("/circuit-reset", hhttp.ResetGuard(resetSecret, hhttp.ResetHandler(registry)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux
}

// applyMiddleware wraps the handler chain: request ID first, then tracing.
func applyMiddleware(handler http.Handler) http.Handler {
	handler = tracing.Middleware(handler)
	handler = requestid.Middleware(handler)
	return handler
}

func runServer(logger *slog.Logger, handler http.Handler, port int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("gateway starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down gateway...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown failed", slog.Any("error", err))
	}
	logger.Info("gateway stopped")
}
