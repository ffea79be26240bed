package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes. Every endpoint requires the
// scheduler secret; the service is an internal surface, not a public one.
func SetupRoutes(
	router *gin.Engine,
	pipelineHandler *PipelineHandler,
	probeHandler *ProbeHandler,
	gapHandler *GapHandler,
	contentHandler *ContentHandler,
	schedulerSecret string,
) {
	v1 := router.Group("/api/v1")
	v1.Use(RequireScheduler(schedulerSecret))

	// Pipeline trigger (cron or manual)
	v1.POST("/pipeline/run", pipelineHandler.TriggerRun)

	// Manual operations
	v1.POST("/probe", probeHandler.Probe)
	v1.POST("/analyze", gapHandler.Analyze)
	v1.POST("/gaps/:id/generate", gapHandler.GenerateForGap)

	// Read path
	v1.GET("/gaps", gapHandler.ListGaps)
	v1.GET("/content", contentHandler.ListContent)
}
