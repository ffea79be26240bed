package bootstrap

import (
	"context"
	"fmt"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/orchestrator"
	"github.com/robfig/cron/v3"
)

// StartScheduler runs the pipeline on the configured cron expression.
// Returns nil when scheduling is disabled.
func StartScheduler(cfg *config.Config, orch *orchestrator.Orchestrator, log logger.Logger) (*cron.Cron, error) {
	if !cfg.Schedule.Enabled {
		log.Info("In-process scheduler disabled")
		return nil, nil
	}

	scheduler := cron.New()

	_, addErr := scheduler.AddFunc(cfg.Schedule.Cron, func() {
		log.Info("Scheduled pipeline run starting", logger.String("cron", cfg.Schedule.Cron))

		if _, runErr := orch.Run(context.Background()); runErr != nil {
			log.Error("Scheduled pipeline run failed", logger.Error(runErr))
		}
	})
	if addErr != nil {
		return nil, fmt.Errorf("schedule pipeline: %w", addErr)
	}

	scheduler.Start()
	log.Info("In-process scheduler started", logger.String("cron", cfg.Schedule.Cron))

	return scheduler, nil
}
