package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/generator"
	"github.com/gin-gonic/gin"
)

// GapAnalyzer defines the analysis operation needed by the handler.
type GapAnalyzer interface {
	Analyze(ctx context.Context, windowDays int) ([]domain.ContentGap, error)
}

// GapStore defines the gap repository operations needed by the handler.
type GapStore interface {
	UpsertBatch(ctx context.Context, gaps []domain.ContentGap) (int, []error)
	GetByID(ctx context.Context, id int64) (*domain.ContentGap, error)
	List(ctx context.Context, filter database.GapFilter) ([]domain.ContentGap, error)
}

// ArticleGenerator defines the generation operation needed by the handler.
type ArticleGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
}

// GapHandler handles gap analysis and generation HTTP requests.
type GapHandler struct {
	analyzer          GapAnalyzer
	gaps              GapStore
	generator         ArticleGenerator
	defaultWindowDays int
}

// NewGapHandler creates a new gap handler.
func NewGapHandler(analyzer GapAnalyzer, gaps GapStore, gen ArticleGenerator, defaultWindowDays int) *GapHandler {
	return &GapHandler{
		analyzer:          analyzer,
		gaps:              gaps,
		generator:         gen,
		defaultWindowDays: defaultWindowDays,
	}
}

// analyzeRequest is the body for POST /api/v1/analyze. GenerateTop, when
// positive, immediately generates articles for that many of the
// highest-priority gaps found.
type analyzeRequest struct {
	WindowDays  int `json:"window_days"`
	GenerateTop int `json:"generate_top"`
}

// Analyze handles POST /api/v1/analyze.
func (h *GapHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	windowDays := req.WindowDays
	if windowDays <= 0 {
		windowDays = h.defaultWindowDays
	}

	ctx := c.Request.Context()

	found, analyzeErr := h.analyzer.Analyze(ctx, windowDays)
	if analyzeErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": analyzeErr.Error()})
		return
	}

	upserted, upsertErrs := h.gaps.UpsertBatch(ctx, found)

	generated := h.generateTop(ctx, found, req.GenerateTop)

	response := gin.H{
		"window_days": windowDays,
		"gaps":        found,
		"upserted":    upserted,
	}
	if len(upsertErrs) > 0 {
		errTexts := make([]string, 0, len(upsertErrs))
		for _, upsertErr := range upsertErrs {
			errTexts = append(errTexts, upsertErr.Error())
		}
		response["upsert_errors"] = errTexts
	}
	if generated != nil {
		response["generated"] = generated
	}

	c.JSON(http.StatusOK, response)
}

// generationOutcome is the per-gap result of an immediate generation.
type generationOutcome struct {
	Query     string `json:"query"`
	Slug      string `json:"slug,omitempty"`
	Published bool   `json:"published"`
	Error     string `json:"error,omitempty"`
}

// generateTop generates articles for the first top gaps of a freshly
// analyzed batch. Gaps arrive sorted by priority already, with IDs
// assigned by the preceding upsert; a gap whose upsert failed has no ID
// and is reported instead of generated, so the article always links back
// to its backlog row.
func (h *GapHandler) generateTop(ctx context.Context, found []domain.ContentGap, top int) []generationOutcome {
	if top <= 0 {
		return nil
	}
	if top > len(found) {
		top = len(found)
	}

	outcomes := make([]generationOutcome, 0, top)
	for i := range found[:top] {
		gap := &found[i]
		outcome := generationOutcome{Query: gap.Query}

		if gap.ID == 0 {
			outcome.Error = "gap was not stored, skipping generation"
			outcomes = append(outcomes, outcome)
			continue
		}

		result, genErr := h.generator.Generate(ctx, generator.Request{
			Query:       gap.Query,
			Keywords:    gap.TargetKeywords,
			GapID:       &gap.ID,
			AutoPublish: true,
		})
		if genErr != nil {
			outcome.Error = genErr.Error()
		} else {
			outcome.Slug = result.Content.Slug
			outcome.Published = result.Published
			if result.PublishErr != nil {
				outcome.Error = result.PublishErr.Error()
			}
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// generateRequest is the optional body for POST /api/v1/gaps/:id/generate.
// Publishing defaults to on; the global auto-publish flag still applies.
type generateRequest struct {
	AutoPublish bool `json:"auto_publish"`
}

// GenerateForGap handles POST /api/v1/gaps/:id/generate.
func (h *GapHandler) GenerateForGap(c *gin.Context) {
	id, parseErr := strconv.ParseInt(c.Param("id"), 10, 64)
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid gap id"})
		return
	}

	req := generateRequest{AutoPublish: true}
	if c.Request.ContentLength > 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
			return
		}
	}

	ctx := c.Request.Context()

	gap, getErr := h.gaps.GetByID(ctx, id)
	if getErr != nil {
		if errors.Is(getErr, database.ErrGapNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "gap not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": getErr.Error()})
		return
	}

	result, genErr := h.generator.Generate(ctx, generator.Request{
		Query:       gap.Query,
		Keywords:    gap.TargetKeywords,
		GapID:       &gap.ID,
		AutoPublish: req.AutoPublish,
	})
	if genErr != nil {
		c.JSON(http.StatusConflict, gin.H{"error": genErr.Error()})
		return
	}

	response := gin.H{
		"content":   result.Content,
		"published": result.Published,
	}
	if result.PublishErr != nil {
		response["publish_error"] = result.PublishErr.Error()
	}

	c.JSON(http.StatusCreated, response)
}

// ListGaps handles GET /api/v1/gaps.
func (h *GapHandler) ListGaps(c *gin.Context) {
	var filter database.GapFilter

	if status := c.Query("status"); status != "" {
		gapStatus := domain.GapStatus(status)
		if !gapStatus.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		filter.Status = gapStatus
	}

	if minPriority := c.Query("min_priority"); minPriority != "" {
		parsed, parseErr := strconv.ParseFloat(minPriority, 64)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_priority filter"})
			return
		}
		filter.MinPriority = parsed
	}

	if limit := c.Query("limit"); limit != "" {
		parsed, parseErr := strconv.Atoi(limit)
		if parseErr != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = parsed
	}

	gaps, listErr := h.gaps.List(c.Request.Context(), filter)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gaps":  gaps,
		"count": len(gaps),
	})
}
