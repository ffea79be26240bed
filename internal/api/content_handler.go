package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/domain"
	"github.com/gin-gonic/gin"
)

// ContentLister defines the content listing operation needed by the handler.
type ContentLister interface {
	List(ctx context.Context, filter database.ContentFilter) ([]domain.GeneratedContent, error)
}

// ContentHandler handles generated-content listing HTTP requests.
type ContentHandler struct {
	content ContentLister
}

// NewContentHandler creates a new content handler.
func NewContentHandler(content ContentLister) *ContentHandler {
	return &ContentHandler{content: content}
}

// ListContent handles GET /api/v1/content.
func (h *ContentHandler) ListContent(c *gin.Context) {
	var filter database.ContentFilter

	if published := c.Query("published"); published != "" {
		parsed, parseErr := strconv.ParseBool(published)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid published filter"})
			return
		}
		filter.Published = &parsed
	}

	if limit := c.Query("limit"); limit != "" {
		parsed, parseErr := strconv.Atoi(limit)
		if parseErr != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = parsed
	}

	articles, listErr := h.content.List(c.Request.Context(), filter)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content": articles,
		"count":   len(articles),
	})
}
