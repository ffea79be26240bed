package api

import (
	"context"
	"net/http"

	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/platform"
	"github.com/citegap/citegap/internal/prober"
	"github.com/gin-gonic/gin"
)

// QueryProber defines the probing operation needed by the handler.
type QueryProber interface {
	ProbeAll(ctx context.Context, queries []string, adapters []platform.Adapter, opts prober.Options) ([]domain.Citation, error)
}

// ProbeHandler handles ad-hoc probing HTTP requests.
type ProbeHandler struct {
	prober   QueryProber
	adapters []platform.Adapter
}

// NewProbeHandler creates a new probe handler.
func NewProbeHandler(p QueryProber, adapters []platform.Adapter) *ProbeHandler {
	return &ProbeHandler{prober: p, adapters: adapters}
}

// probeRequest is the body for POST /api/v1/probe. TestMode disables
// pacing, for trying out query phrasing; results are still persisted.
type probeRequest struct {
	Queries  []string `json:"queries" binding:"required,min=1"`
	TestMode bool     `json:"test_mode"`
}

// Probe handles POST /api/v1/probe.
func (h *ProbeHandler) Probe(c *gin.Context) {
	var req probeRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	if len(h.adapters) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no platform adapters configured"})
		return
	}

	citations, probeErr := h.prober.ProbeAll(c.Request.Context(), req.Queries, h.adapters, prober.Options{TestMode: req.TestMode})
	if probeErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": probeErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"citations": citations,
		"count":     len(citations),
		"test_mode": req.TestMode,
	})
}
