// Package api provides HTTP handlers for the citegap service.
package api

import (
	"context"
	"net/http"

	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// PipelineRunner defines the run operation needed by the handler.
type PipelineRunner interface {
	Run(ctx context.Context) (*orchestrator.Report, error)
}

// PipelineHandler handles pipeline trigger HTTP requests.
type PipelineHandler struct {
	runner PipelineRunner
	log    logger.Logger
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(runner PipelineRunner, log logger.Logger) *PipelineHandler {
	return &PipelineHandler{runner: runner, log: log}
}

// TriggerRun handles POST /api/v1/pipeline/run. The run executes
// synchronously and the caller receives the full run report.
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	h.log.Info("Pipeline run triggered via API")

	report, runErr := h.runner.Run(c.Request.Context())
	if runErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  runErr.Error(),
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
