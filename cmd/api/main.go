package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ewilliams-labs/moodgraph/internal/app"
	"github.com/ewilliams-labs/moodgraph/internal/config"
)

func main() {
	configPath := flag.String("config", "moodgraph.toml", "config file")
	flag.Parse()

	// 1. Configuration: TOML file, then .env, then environment overrides.
	cfg, err := config.Load(*configPath)
	if err != nil {
		// the logger is configured from the file, so fall back to defaults here
		config.DefaultConfig().Logging.NewLogger(os.Stderr).WithError(err).Fatal("failed to load config")
	}
	logger := cfg.Logging.NewLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Adapters and core services, wired from the config.
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize application")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Error("failed to close application")
		}
	}()

	// 3. Serve until interrupted.
	if err := a.Serve(ctx); err != nil {
		logger.WithError(err).Error("server stopped")
		stop()
		_ = a.Close()
		os.Exit(1)
	}
}
