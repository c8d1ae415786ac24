package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/saviobatista/steepturn-coach/internal/config"
	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/nats"
	"github.com/saviobatista/steepturn-coach/internal/storage"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// EventSource delivers coach events
type EventSource interface {
	SubscribeEvents(subject string, handler func(*types.Event)) error
}

// EventWriter persists coach events
type EventWriter interface {
	WriteEvent(event *types.Event) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("recorder failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadRecorder()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()
	slog.SetDefault(logger)

	if cfg.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required")
	}

	client, err := nats.New(cfg.NATSURL, logger)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	defer client.Close()

	store := storage.New(cfg.OutputDir, logger)
	if err := store.Start(); err != nil {
		return fmt.Errorf("failed to start storage: %w", err)
	}
	defer func() {
		if err := store.Stop(); err != nil {
			logger.Warn("failed to stop storage", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("recorder started", slog.String("output_dir", cfg.OutputDir))
	return record(ctx, client, store, logger)
}

// record writes every coach event to w until ctx is done
func record(ctx context.Context, source EventSource, w EventWriter, logger *slog.Logger) error {
	var written, failed atomic.Uint64

	if err := source.SubscribeEvents(nats.SubjectEventsAll, func(event *types.Event) {
		if err := w.WriteEvent(event); err != nil {
			failed.Add(1)
			logger.Warn("failed to write event", slog.String("kind", string(event.Kind)), slog.Any("error", err))
			return
		}
		written.Add(1)
	}); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	<-ctx.Done()
	logger.Info("recorder stopped",
		slog.Uint64("written", written.Load()),
		slog.Uint64("failed", failed.Load()))
	return nil
}
