package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lite-tech/briefings/internal/config"
	"github.com/lite-tech/briefings/internal/content"
	"github.com/lite-tech/briefings/internal/events"
	"github.com/lite-tech/briefings/internal/feed"
	"github.com/lite-tech/briefings/internal/server"
	"github.com/lite-tech/briefings/internal/submission"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	fallbacks, err := feed.LoadFallbacks()
	if err != nil {
		logger.Error("load fallback content", "error", err)
		os.Exit(1)
	}

	client := content.NewClient(cfg.APIHost, cfg.RevalidateSeconds, logger)
	assembler := feed.NewAssembler(cfg.APIBaseURL, fallbacks)
	bus := events.NewBus()

	var publisher events.Publisher
	var rabbit *events.RabbitMQPublisher
	if cfg.RabbitMQURL != "" {
		rabbit, err = events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			// Refresh events still reach open pages through the bus.
			logger.Warn("rabbitmq unavailable, external refresh events disabled", "error", err)
		} else {
			publisher = rabbit
			defer rabbit.Close()
		}
	}

	broadcaster := &server.RefreshBroadcaster{Bus: bus, Publisher: publisher, Logger: logger}
	store := submission.NewStore(func(onClose func()) *submission.Controller {
		return submission.NewController(client, client, logger,
			submission.WithOnClose(onClose),
			submission.WithBroadcaster(broadcaster),
			submission.WithRefresher(client),
		)
	}, submission.DefaultSessionTTL)
	store.Start()
	defer store.Stop()

	srv, err := server.New(cfg, client, assembler, store, bus, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
