// Package bootstrap handles application initialization and lifecycle
// management for the citegap service.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/citegap/citegap/internal/logger"
)

// Start initializes and runs the citegap service until interrupted.
func Start() error {
	cfg, configErr := LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting citegap service",
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	db, dbErr := SetupDatabase(cfg)
	if dbErr != nil {
		return fmt.Errorf("database: %w", dbErr)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()
	log.Info("Database connection established")

	pipeline := BuildPipeline(cfg, db, log)
	server := SetupHTTPServer(cfg, db, pipeline, log)

	scheduler, schedErr := StartScheduler(cfg, pipeline.Orchestrator, log)
	if schedErr != nil {
		return fmt.Errorf("scheduler: %w", schedErr)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case startErr := <-serverErr:
		if startErr != nil {
			return fmt.Errorf("server: %w", startErr)
		}
	case sig := <-quit:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	if shutdownErr := server.Shutdown(context.Background()); shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	log.Info("Citegap service stopped")
	return nil
}

// RunOnce executes a single pipeline run and exits, for cron-driven
// deployments that do not keep the HTTP server running.
func RunOnce() error {
	cfg, configErr := LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	db, dbErr := SetupDatabase(cfg)
	if dbErr != nil {
		return fmt.Errorf("database: %w", dbErr)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	pipeline := BuildPipeline(cfg, db, log)

	report, runErr := pipeline.Orchestrator.Run(context.Background())
	if runErr != nil {
		return fmt.Errorf("pipeline run: %w", runErr)
	}

	log.Info("Pipeline run completed",
		logger.Bool("success", report.Success),
		logger.Int64("duration_ms", report.DurationMS),
	)

	return nil
}
