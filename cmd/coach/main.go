package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/saviobatista/steepturn-coach/internal/capture"
	"github.com/saviobatista/steepturn-coach/internal/coach"
	"github.com/saviobatista/steepturn-coach/internal/config"
	"github.com/saviobatista/steepturn-coach/internal/db"
	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/nats"
	"github.com/saviobatista/steepturn-coach/internal/redis"
	"github.com/saviobatista/steepturn-coach/internal/stats"
	"github.com/saviobatista/steepturn-coach/internal/types"
	"golang.org/x/sync/errgroup"
)

const commandBufferSize = 64

func main() {
	if err := run(); err != nil {
		slog.Error("coach failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return serve(ctx, cfg, b, logger)
}

// backends are the optional collaborators around the coach. Unset fields are skipped.
type backends struct {
	publisher  coach.Publisher
	cache      coach.Cache
	store      coach.SampleStore
	statsStore stats.Store
	commands   <-chan types.Command

	closers []func()
}

// Close releases the backends in reverse order of opening
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends connects to the configured services. An empty address disables a backend.
func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.NATSURL != "" {
		client, err := nats.New(cfg.NATSURL, logger)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create NATS client: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.publisher = client

		commands := make(chan types.Command, commandBufferSize)
		if err := client.SubscribeCommands(func(cmd *types.Command) {
			select {
			case commands <- *cmd:
			case <-ctx.Done():
			}
		}); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to subscribe to commands: %w", err)
		}
		b.commands = commands
	} else {
		logger.Warn("NATS disabled, events are not published and no commands are accepted")
	}

	if cfg.RedisAddr != "" {
		client, err := redis.New(cfg.RedisAddr)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close Redis client", slog.Any("error", err))
			}
		})
		b.cache = client
	}

	if cfg.DBConnStr != "" {
		client, err := db.New(cfg.DBConnStr)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create database client: %w", err)
		}
		b.closers = append(b.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close database client", slog.Any("error", err))
			}
		})
		if err := client.Ping(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		b.store = client
		b.statsStore = client
	}

	return b, nil
}

// serve runs the link and the coach until ctx is done
func serve(ctx context.Context, cfg *config.Config, b *backends, logger *slog.Logger) error {
	st := stats.New()
	if b.statsStore != nil {
		st.SetStore(b.statsStore)
	}

	link := capture.New(capture.Config{
		RemoteAddr:       cfg.SimulatorAddr(),
		LocalPort:        cfg.LocalPort,
		RPOSRate:         cfg.RPOSRate,
		Registrations:    types.DefaultRegistrations(cfg.DatarefFrequency),
		WatchdogInterval: cfg.WatchdogInterval,
		LivenessTimeout:  cfg.LivenessTimeout,
	}, st, logger)
	if err := link.Start(); err != nil {
		return fmt.Errorf("failed to start simulator link: %w", err)
	}

	c := coach.New(coach.Dependencies{
		Publisher: b.publisher,
		Cache:     b.cache,
		Store:     b.store,
		Stats:     st,
		Logger:    logger,
	})

	logger.Info("coach started",
		slog.String("simulator", cfg.SimulatorAddr()),
		slog.String("local", link.LocalAddr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(gctx, link.Events(), b.commands)
	})
	g.Go(func() error {
		st.StartLogging(gctx, cfg.StatsLogInterval, logger)
		return nil
	})
	if b.statsStore != nil {
		g.Go(func() error {
			st.StartPersistence(gctx, cfg.StatsPersistInterval, logger)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		link.Stop()
		return nil
	})

	err := g.Wait()
	logger.Info("coach stopped", slog.Any("stats", st))
	return err
}
