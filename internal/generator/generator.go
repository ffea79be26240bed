// Package generator turns a content gap into a draft article and
// optionally publishes it.
package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/logger"
	"github.com/google/uuid"
)

// slugSuffixLen is the length of the random suffix appended on slug
// collisions.
const slugSuffixLen = 8

// Draft is what the external writing capability returns.
type Draft struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	MetaDescription string `json:"metaDescription"`
}

// WriteRequest is the input handed to the writing capability.
type WriteRequest struct {
	Query             string
	Keywords          []string
	CompetitorExcerpt string
}

// Writer is the external article-writing capability.
type Writer interface {
	Write(ctx context.Context, req WriteRequest) (*Draft, error)
}

// SitePublisher is the external publish capability. It returns the
// public URL of the published article.
type SitePublisher interface {
	Publish(ctx context.Context, content *domain.GeneratedContent) (string, error)
}

// GapStore is the gap state machine surface the generator drives.
type GapStore interface {
	MarkGenerating(ctx context.Context, id int64) error
	MarkPublished(ctx context.Context, id int64) error
	MarkIdentified(ctx context.Context, id int64) error
}

// ContentStore persists drafts and publish results.
type ContentStore interface {
	Insert(ctx context.Context, c *domain.GeneratedContent) error
	MarkPublished(ctx context.Context, id int64, publishedURL string) error
}

// SettingsReader reads the global auto-publish switch, fresh on every
// use.
type SettingsReader interface {
	GetBool(ctx context.Context, key string) (bool, error)
}

// Request describes one generation.
type Request struct {
	Query         string
	Keywords      []string
	CompetitorURL string
	// GapID ties the generation to a backlog gap when set.
	GapID *int64
	// AutoPublish requests publishing; the global flag must also allow it.
	AutoPublish bool
}

// Result reports the generation outcome. PublishErr is non-nil when the
// draft was written but publishing failed; that is a non-fatal result.
type Result struct {
	Content    *domain.GeneratedContent
	Published  bool
	PublishErr error
}

// Generator produces and optionally publishes articles for gaps.
type Generator struct {
	writer     Writer
	publisher  SitePublisher
	gaps       GapStore
	content    ContentStore
	settings   SettingsReader
	httpClient *http.Client
	excerptMax int
	log        logger.Logger
}

// New creates a generator. publisher may be nil when no publish endpoint
// is configured.
func New(
	writer Writer,
	publisher SitePublisher,
	gaps GapStore,
	content ContentStore,
	settings SettingsReader,
	httpClient *http.Client,
	excerptMax int,
	log logger.Logger,
) *Generator {
	return &Generator{
		writer:     writer,
		publisher:  publisher,
		gaps:       gaps,
		content:    content,
		settings:   settings,
		httpClient: httpClient,
		excerptMax: excerptMax,
		log:        log,
	}
}

// Generate runs one generation. Any failure before the draft is stored
// reverts the gap to identified so it re-enters the eligible backlog; a
// publish failure leaves the gap generating, recoverable by the next
// run's sweep.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.GapID != nil {
		if claimErr := g.gaps.MarkGenerating(ctx, *req.GapID); claimErr != nil {
			return nil, fmt.Errorf("claim gap: %w", claimErr)
		}
	}

	excerpt := g.competitorExcerpt(ctx, req.CompetitorURL)

	draft, writeErr := g.writer.Write(ctx, WriteRequest{
		Query:             req.Query,
		Keywords:          req.Keywords,
		CompetitorExcerpt: excerpt,
	})
	if writeErr != nil {
		g.revert(ctx, req.GapID)
		return nil, fmt.Errorf("write draft: %w", writeErr)
	}

	content := &domain.GeneratedContent{
		GapID:               req.GapID,
		Title:               draft.Title,
		Slug:                domain.Slugify(draft.Title),
		Body:                draft.Body,
		MetaDescription:     draft.MetaDescription,
		Keywords:            req.Keywords,
		CompetitorSourceURL: req.CompetitorURL,
	}

	if insertErr := g.content.Insert(ctx, content); insertErr != nil {
		// Slug collisions get one retry with a random suffix.
		content.Slug = content.Slug + "-" + uuid.NewString()[:slugSuffixLen]
		if retryErr := g.content.Insert(ctx, content); retryErr != nil {
			g.revert(ctx, req.GapID)
			return nil, fmt.Errorf("store draft: %w", insertErr)
		}
	}

	result := &Result{Content: content}

	if !req.AutoPublish {
		return result, nil
	}

	allowed, settingErr := g.settings.GetBool(ctx, database.SettingAutoPublish)
	if settingErr != nil {
		result.PublishErr = fmt.Errorf("read auto-publish flag: %w", settingErr)
		return result, nil
	}
	if !allowed || g.publisher == nil {
		g.log.Info("Auto-publish disabled, draft left unpublished",
			logger.String("slug", content.Slug),
		)
		return result, nil
	}

	publishedURL, publishErr := g.publisher.Publish(ctx, content)
	if publishErr != nil {
		// The gap stays generating; the next recovery sweep re-opens it.
		g.log.Warn("Publish failed",
			logger.String("slug", content.Slug),
			logger.Error(publishErr),
		)
		result.PublishErr = publishErr
		return result, nil
	}

	if markErr := g.content.MarkPublished(ctx, content.ID, publishedURL); markErr != nil {
		result.PublishErr = fmt.Errorf("record publish: %w", markErr)
		return result, nil
	}

	content.Published = true
	content.PublishedURL = publishedURL

	if req.GapID != nil {
		if gapErr := g.gaps.MarkPublished(ctx, *req.GapID); gapErr != nil {
			result.PublishErr = fmt.Errorf("advance gap: %w", gapErr)
			return result, nil
		}
	}

	result.Published = true
	return result, nil
}

// competitorExcerpt fetches the competitor page text, best-effort.
func (g *Generator) competitorExcerpt(ctx context.Context, url string) string {
	if url == "" {
		return ""
	}

	excerpt, fetchErr := FetchCompetitorExcerpt(ctx, g.httpClient, url, g.excerptMax)
	if fetchErr != nil {
		g.log.Warn("Competitor page fetch failed, proceeding without excerpt",
			logger.String("url", url),
			logger.Error(fetchErr),
		)
		return ""
	}

	return excerpt
}

// revert returns a claimed gap to the eligible backlog after a failed
// generation.
func (g *Generator) revert(ctx context.Context, gapID *int64) {
	if gapID == nil {
		return
	}

	if revertErr := g.gaps.MarkIdentified(ctx, *gapID); revertErr != nil {
		g.log.Error("Failed to revert gap after generation failure",
			logger.Int64("gap_id", *gapID),
			logger.Error(revertErr),
		)
	}
}
