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

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/regional-weather-aggregation/internal/api/http"
	"github.com/i474232898/regional-weather-aggregation/internal/catalog"
	"github.com/i474232898/regional-weather-aggregation/internal/config"
	"github.com/i474232898/regional-weather-aggregation/internal/logging"
	"github.com/i474232898/regional-weather-aggregation/internal/scheduler"
	"github.com/i474232898/regional-weather-aggregation/internal/store"
	"github.com/i474232898/regional-weather-aggregation/internal/weather"
	"github.com/i474232898/regional-weather-aggregation/internal/weather/providers"
)

const appName = "regional-weather"

const usage = `usage: regional-weather <stage>

stages:
  catalog    rebuild the station catalog from the region markup files
  fetch      append every cataloged station's observations to the raw file
  aggregate  average the raw observations per region and date
  run        catalog, clean fetch and aggregate in one go
  serve      serve aggregates over HTTP (and run the pipeline on SCHEDULE_INTERVAL)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	stage := os.Args[1]

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, appName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stage, cfg); err != nil {
		slog.Error("stage failed", "stage", stage, "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, stage string, cfg *config.AppConfig) error {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	source := providers.NewSILOSource(httpClient, providers.SILOConfig{
		BaseURL:  cfg.SILO.BaseURL,
		Username: cfg.SILO.Username,
		Dataset:  cfg.SILO.Dataset,
		Comment:  cfg.SILO.Comment,
		Format:   cfg.SILO.Format,
		Start:    cfg.SILO.Start,
		Finish:   cfg.SILO.Finish,
		Breaker: providers.BreakerConfig{
			MaxConsecutiveFailures: cfg.BreakerMaxFailures,
			Timeout:                cfg.BreakerTimeout,
		},
	})

	memStore := store.NewMemoryStore()
	service := weather.NewService(catalog.NewFile(cfg.CatalogPath), source, memStore, cfg.ServiceConfig())

	switch stage {
	case "catalog":
		report, err := service.BuildCatalog(ctx)
		slog.Info("catalog stage finished", "path", cfg.CatalogPath, "stations", report.Stations, "failed", report.Failed)
		return err
	case "fetch":
		_, err := service.FetchObservations(ctx)
		return err
	case "aggregate":
		_, err := service.AggregateObservations(ctx)
		return err
	case "run":
		_, err := service.Run(ctx)
		return err
	case "serve":
		return serve(ctx, cfg, service)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func serve(ctx context.Context, cfg *config.AppConfig, service *weather.Service) error {
	if n, err := service.LoadStore(); err != nil {
		slog.Warn("no aggregates loaded at startup", "path", cfg.AggregatePath, "error", err)
	} else {
		slog.Info("aggregates loaded", "path", cfg.AggregatePath, "regionDays", n)
	}

	// Scheduler that periodically rebuilds the whole pipeline.
	sched := scheduler.New(cfg.ScheduleInterval, cfg.ScheduleTimeout, service)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, service)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}
