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

	"github.com/joho/godotenv"

	"blibank/internal/api"
	"blibank/internal/bank"
	"blibank/internal/config"
	"blibank/internal/directory"
	"blibank/internal/service"
	"blibank/internal/storage/csvstore"
	"blibank/pkg/crypto"
	"blibank/pkg/metrics"
)

const appName = "blibank"

func main() {
	_ = godotenv.Load()

	logger := setupLogger()
	logger.Info("Starting application", slog.String("name", appName))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var signer *crypto.Signer
	if cfg.SnapshotKey != "" {
		signer = crypto.NewSigner(cfg.SnapshotKey, logger)
	}
	accountStore := csvstore.NewAccountStore(cfg.AccountsPath(), signer, logger)
	statementStore := csvstore.NewStatementStore(cfg.StatementsDir(), logger)

	ctx := context.Background()
	dir, err := directory.Open(ctx, accountStore, logger)
	if err != nil {
		logger.Error("Failed to load account directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	notifier := service.NewNotifier(&service.MockEmailService{}, logger)
	b := bank.New(dir, statementStore, nil, notifier, logger)

	collector := metrics.NewCollector(logger)
	tokens := api.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handler := api.NewHandler(b, tokens, collector, logger)

	metricsServer := collector.StartMetricsServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg.ListenAddr, handler, logger)

	waitForShutdown(logger, httpServer, metricsServer)
	logger.Info("Application shutdown complete")
}

func setupLogger() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func startHTTPServer(addr string, handler *api.Handler, logger *slog.Logger) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(logger *slog.Logger, servers ...*http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", slog.String("error", err.Error()))
		}
	}
}
