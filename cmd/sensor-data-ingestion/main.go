package main

import (
	"context"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/envsense/sensor-data-ingestion/internal/api/http"
	"github.com/envsense/sensor-data-ingestion/internal/config"
	"github.com/envsense/sensor-data-ingestion/internal/listener"
	"github.com/envsense/sensor-data-ingestion/internal/scheduler"
	"github.com/envsense/sensor-data-ingestion/internal/sensor"
	"github.com/envsense/sensor-data-ingestion/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable store. Connecting also installs the schema and the
	// change-notification trigger.
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	pgStore, err := store.NewPostgresStore(connectCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer pgStore.Close()

	// Core service shared by every trigger adapter.
	gen := sensor.NewGenerator(rand.NewSource(time.Now().UnixNano()))
	service := sensor.NewService(pgStore, gen, cfg.SensorCount, cfg.StoreTimeout)

	// Timer trigger.
	sched := scheduler.New(cfg.IngestInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Change-notification trigger on its own connection.
	lst := listener.New(cfg.ListenDatabaseURL, store.NotifyChannel, service)
	lst.Start(ctx)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "sensor-data-ingestion",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sensor-data-ingestion",
		})
	})

	// Prometheus exposition.
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// HTTP trigger routes.
	httpapi.RegisterRoutes(app, service)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}

	select {
	case <-lst.Done():
	case <-time.After(5 * time.Second):
		log.Printf("listener did not stop in time")
	}
}
