package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/charmbracelet/log"

	"github.com/amirasaad/payproc/infra/initializer"
	"github.com/amirasaad/payproc/pkg/app"
	"github.com/amirasaad/payproc/pkg/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	a := app.New(deps, cfg)
	logger.Info("🚀 payment processor running",
		"env", cfg.Env,
		"gateway", a.Deps.Gateway.Name(),
	)

	// Commands arrive over the bus (saga) until an API surface is wired
	// in front of the coordinator; block until shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", "signal", sig.String())

	if err := deps.EventBus.Close(); err != nil {
		logger.Error("failed to close event bus", "error", err)
	}
	if deps.DB != nil {
		if sqlDB, err := deps.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return nil
}
