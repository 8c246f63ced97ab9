package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"worklog-server-go/internal/bootstrap"
	"worklog-server-go/internal/platform/config"
	"worklog-server-go/internal/platform/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worklog-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	result, err := config.NewLoader().Load()
	if err != nil {
		return err
	}
	cfg := result.Config

	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.InfoTag("Boot", "configuration loaded from %s", result.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := app.Run(ctx); err != nil {
		return err
	}
	logger.InfoTag("Boot", "shutdown complete")
	return nil
}
