package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hemprojects/transport/coordinator/adapters/db"
	"github.com/hemprojects/transport/coordinator/adapters/push"
	"github.com/hemprojects/transport/coordinator/adapters/rest/handlers"
	"github.com/hemprojects/transport/coordinator/config"
	"github.com/hemprojects/transport/coordinator/core"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "coordinator server configuration file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	log.Info("starting coordinator server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := db.New(log, cfg.DBAddress)
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error("failed to close db connection", "error", err)
		}
	}()

	if err := storage.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate db: %w", err)
	}

	sender := push.NewSender(log, cfg.Push.AppID, cfg.Push.APIKey)
	svc := core.NewService(log, storage, sender)

	go runRolloverLoop(ctx, log, svc, cfg.Rollover.At)

	mux := http.NewServeMux()
	handlers.Register(mux, log, svc, cfg.HTTP.Timeout)

	server := http.Server{
		Addr:              cfg.HTTP.Address,
		ReadHeaderTimeout: cfg.HTTP.Timeout,
		Handler:           mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("coordinator http server is running", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runRolloverLoop fires the daily rollover at the configured local time
// until the context is cancelled.
func runRolloverLoop(ctx context.Context, log *slog.Logger, svc *core.Service, at string) {
	for {
		wait := core.NextRolloverIn(time.Now(), at)
		log.Debug("next rollover scheduled", "in", wait.Round(time.Second).String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if _, err := svc.Rollover(ctx); err != nil {
			log.Error("scheduled rollover failed", "error", err)
		}
	}
}

func mustMakeLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
