package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/release-panels/internal/config"
	"github.com/gabriel/release-panels/internal/database"
	apihttp "github.com/gabriel/release-panels/internal/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedDefaultData {
		if err := database.SeedDefaults(db); err != nil {
			slog.Error("failed to seed defaults", "error", err)
			os.Exit(1)
		}
	}

	services, servicesErr := apihttp.NewServices(cfg, db, logger)
	if servicesErr != nil {
		slog.Warn("mapping sources loaded with warnings", "error", servicesErr)
	}

	app := apihttp.NewServerWithServices(cfg, db, services)

	controllerCtx, controllerCancel := context.WithCancel(context.Background())
	services.Controller.Start(controllerCtx)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "sources", len(services.Sources.List()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	services.Session.Stop()
	controllerCancel()
	services.Controller.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
