package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"visionbridge/internal/app"
	"visionbridge/internal/config"
	"visionbridge/internal/logger"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("bridge exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Producer.Stop()

	a, err := app.New(cfg, deps.Staging, deps.Results, deps.Producer, log)
	if err != nil {
		return err
	}

	consumer, err := app.StartResultConsumer(cfg, a.ResultConsumer)
	if err != nil {
		// The bridge still converges on polling alone; announcements only
		// shave latency.
		slog.Warn("result announcements unavailable, falling back to polling", "error", err)
	} else {
		defer consumer.Stop()
	}

	return a.Run(ctx)
}
