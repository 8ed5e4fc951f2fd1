package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chemequip/backend/internal/api"
	"github.com/chemequip/backend/internal/config"
	"github.com/chemequip/backend/internal/events"
	"github.com/chemequip/backend/internal/report"
	"github.com/chemequip/backend/internal/storage"
	"github.com/chemequip/backend/internal/web"
	"github.com/labstack/echo/v4"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, cfgFile string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := events.NewHub(logger)
	defer hub.Close()
	publisher := events.Multi{hub}

	if len(cfg.Events.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, cfg.PublishTimeout())
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = append(publisher, kafka)
		logger.Info("kafka events enabled", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:            logger,
		BodyLimit:         cfg.Server.BodyLimit,
		AllowOrigins:      cfg.Server.AllowOrigins,
		EnableCompression: cfg.Server.EnableCompression,
		CompressionLevel:  cfg.Server.CompressionLevel,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:       store,
		Publisher:   publisher,
		Stream:      hub,
		Renderer:    report.NewRenderer(cfg.Location()),
		Logger:      logger,
		Version:     Version,
		RequireAuth: cfg.Security.RequireAuth,
		Realm:       cfg.Security.Realm,
	}))
	if cfg.Server.ServeDashboard {
		if err := web.RegisterStaticRoutes(e, api.APIPrefix); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", s.Addr,
			"version", Version,
			"driver", cfg.Storage.Driver,
			"retention", cfg.Storage.Retention,
			"requireAuth", cfg.Security.RequireAuth,
		)
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*storage.SQLStore, error) {
	return storage.Open(ctx, storage.Options{
		Driver:            cfg.Storage.Driver,
		DSN:               cfg.Storage.DSN,
		Retention:         cfg.Storage.Retention,
		DuckDBThreads:     cfg.Storage.DuckDBThreads,
		DuckDBMemoryLimit: cfg.Storage.DuckDBMemoryLimit,
		Logger:            logger,
	})
}
