// Package tracker compares citation rates before and after an article's
// publication.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/logger"
)

// Window is the comparison window either side of a publish timestamp.
const Window = 48 * time.Hour

// minBaseRate guards the division when the before-window rate is zero.
const minBaseRate = 0.01

// CitationStats tallies product mentions per query time window.
type CitationStats interface {
	MentionRate(ctx context.Context, query string, from, to time.Time) (database.MentionWindow, error)
}

// ContentStore lists candidates and records results.
type ContentStore interface {
	ListForPerformanceCheck(ctx context.Context, from, to time.Time) ([]database.PerformanceCandidate, error)
	SetImprovement(ctx context.Context, id int64, improvement float64) error
}

// Result summarizes one tracking pass.
type Result struct {
	Checked int
	Updated int
	Skipped int
}

// Tracker fills the citation-improvement metric on published articles.
type Tracker struct {
	citations CitationStats
	content   ContentStore
	log       logger.Logger
}

// New creates a tracker.
func New(citations CitationStats, content ContentStore, log logger.Logger) *Tracker {
	return &Tracker{citations: citations, content: content, log: log}
}

// Track processes articles published within the trailing window whose
// improvement metric is unset. An article is skipped when either
// comparison window has no citations for its gap's query.
func (t *Tracker) Track(ctx context.Context, now time.Time) (Result, error) {
	var result Result

	candidates, listErr := t.content.ListForPerformanceCheck(ctx, now.Add(-Window), now)
	if listErr != nil {
		return result, fmt.Errorf("list performance candidates: %w", listErr)
	}

	for _, cand := range candidates {
		if cand.Content.PublishedAt == nil {
			continue
		}
		result.Checked++

		publishedAt := *cand.Content.PublishedAt

		before, beforeErr := t.citations.MentionRate(ctx, cand.GapQuery, publishedAt.Add(-Window), publishedAt)
		if beforeErr != nil {
			t.log.Warn("Before-window tally failed",
				logger.Int64("content_id", cand.Content.ID),
				logger.Error(beforeErr),
			)
			continue
		}

		after, afterErr := t.citations.MentionRate(ctx, cand.GapQuery, publishedAt, publishedAt.Add(Window))
		if afterErr != nil {
			t.log.Warn("After-window tally failed",
				logger.Int64("content_id", cand.Content.ID),
				logger.Error(afterErr),
			)
			continue
		}

		if before.Total == 0 || after.Total == 0 {
			result.Skipped++
			continue
		}

		improvement := Improvement(
			float64(before.Mentioned)/float64(before.Total),
			float64(after.Mentioned)/float64(after.Total),
		)

		if saveErr := t.content.SetImprovement(ctx, cand.Content.ID, improvement); saveErr != nil {
			t.log.Error("Failed to store improvement",
				logger.Int64("content_id", cand.Content.ID),
				logger.Error(saveErr),
			)
			continue
		}

		result.Updated++
	}

	return result, nil
}

// Improvement is the relative mention-rate change in percent, with the
// base rate floored to avoid dividing by zero.
func Improvement(before, after float64) float64 {
	base := before
	if base < minBaseRate {
		base = minBaseRate
	}
	return (after - before) / base * 100
}
