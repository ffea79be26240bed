package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citegap/citegap/internal/domain"
)

// ErrContentNotFound is returned when a generated content row does not exist.
var ErrContentNotFound = errors.New("generated content not found")

// ErrUnknownChannel is returned for a crosspost channel with no URL column.
var ErrUnknownChannel = errors.New("unknown crosspost channel")

// channelColumns maps crosspost channel names to their URL columns.
// The map doubles as the column whitelist for dynamic queries.
var channelColumns = map[string]string{
	"devto":    "devto_url",
	"hashnode": "hashnode_url",
}

// contentColumns is the shared select list for generated content rows.
const contentColumns = `
	id, gap_id, title, slug, body, meta_description, keywords,
	competitor_source_url, published, published_at, published_url,
	devto_url, hashnode_url, citation_improvement_48h,
	last_performance_check, created_at
`

// ContentRepository persists generated articles.
type ContentRepository struct {
	db *sql.DB
}

// NewContentRepository creates a content repository.
func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Insert stores a new unpublished draft.
func (r *ContentRepository) Insert(ctx context.Context, c *domain.GeneratedContent) error {
	keywordsJSON, marshalErr := json.Marshal(c.Keywords)
	if marshalErr != nil {
		return fmt.Errorf("marshal keywords: %w", marshalErr)
	}

	query := `
		INSERT INTO generated_content
			(gap_id, title, slug, body, meta_description, keywords,
			 competitor_source_url, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
		RETURNING id, created_at
	`

	scanErr := r.db.QueryRowContext(ctx, query,
		c.GapID,
		c.Title,
		c.Slug,
		c.Body,
		c.MetaDescription,
		keywordsJSON,
		nullableString(c.CompetitorSourceURL),
	).Scan(&c.ID, &c.CreatedAt)
	if scanErr != nil {
		return fmt.Errorf("insert content: %w", scanErr)
	}

	return nil
}

// MarkPublished records a successful site publish.
func (r *ContentRepository) MarkPublished(ctx context.Context, id int64, publishedURL string) error {
	result, execErr := r.db.ExecContext(ctx, `
		UPDATE generated_content
		SET published = TRUE, published_at = NOW(), published_url = $2
		WHERE id = $1
	`, id, publishedURL)
	if execErr != nil {
		return fmt.Errorf("mark content published: %w", execErr)
	}

	return requireAffected(result)
}

// CountPublishedSince counts articles published at or after the given time.
// The orchestrator uses the UTC day start to enforce the daily quota.
func (r *ContentRepository) CountPublishedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	scanErr := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM generated_content
		WHERE published AND published_at >= $1
	`, since).Scan(&count)
	if scanErr != nil {
		return 0, fmt.Errorf("count published: %w", scanErr)
	}

	return count, nil
}

// ListMissingChannelURL returns up to limit published articles that have
// not yet been crossposted to the channel, oldest published first.
func (r *ContentRepository) ListMissingChannelURL(ctx context.Context, channel string, limit int) ([]domain.GeneratedContent, error) {
	column, ok := channelColumns[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	query := `SELECT ` + contentColumns + `
		FROM generated_content
		WHERE published AND ` + column + ` IS NULL
		ORDER BY published_at ASC
		LIMIT $1
	`

	rows, queryErr := r.db.QueryContext(ctx, query, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("query crosspost backlog: %w", queryErr)
	}
	defer rows.Close()

	return scanContent(rows)
}

// SetChannelURL records a successful crosspost to the channel.
func (r *ContentRepository) SetChannelURL(ctx context.Context, id int64, channel, url string) error {
	column, ok := channelColumns[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	result, execErr := r.db.ExecContext(ctx,
		`UPDATE generated_content SET `+column+` = $2 WHERE id = $1`,
		id, url,
	)
	if execErr != nil {
		return fmt.Errorf("set channel url: %w", execErr)
	}

	return requireAffected(result)
}

// PerformanceCandidate pairs an article with the query of its gap for
// before/after citation-rate comparison.
type PerformanceCandidate struct {
	Content  domain.GeneratedContent
	GapQuery string
}

// ListForPerformanceCheck returns articles published between from and to
// whose improvement metric is unset and which are tied to a gap.
func (r *ContentRepository) ListForPerformanceCheck(ctx context.Context, from, to time.Time) ([]PerformanceCandidate, error) {
	query := `
		SELECT gc.id, gc.published_at, cg.query
		FROM generated_content gc
		JOIN content_gaps cg ON cg.id = gc.gap_id
		WHERE gc.published
		  AND gc.published_at >= $1 AND gc.published_at < $2
		  AND gc.citation_improvement_48h IS NULL
		ORDER BY gc.published_at ASC
	`

	rows, queryErr := r.db.QueryContext(ctx, query, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("query performance candidates: %w", queryErr)
	}
	defer rows.Close()

	var candidates []PerformanceCandidate
	for rows.Next() {
		var (
			cand        PerformanceCandidate
			publishedAt sql.NullTime
		)
		if scanErr := rows.Scan(&cand.Content.ID, &publishedAt, &cand.GapQuery); scanErr != nil {
			return nil, fmt.Errorf("scan performance row: %w", scanErr)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			cand.Content.PublishedAt = &t
		}
		candidates = append(candidates, cand)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("performance rows: %w", rowsErr)
	}

	return candidates, nil
}

// SetImprovement stores the computed 48h citation improvement.
// Performance fields are mutated by the tracker only.
func (r *ContentRepository) SetImprovement(ctx context.Context, id int64, improvement float64) error {
	result, execErr := r.db.ExecContext(ctx, `
		UPDATE generated_content
		SET citation_improvement_48h = $2, last_performance_check = NOW()
		WHERE id = $1
	`, id, improvement)
	if execErr != nil {
		return fmt.Errorf("set improvement: %w", execErr)
	}

	return requireAffected(result)
}

// ContentFilter narrows content listings.
type ContentFilter struct {
	// Published filters on publish state when non-nil.
	Published *bool
	Limit     int
}

// List returns generated content matching the filter, newest first.
func (r *ContentRepository) List(ctx context.Context, filter ContentFilter) ([]domain.GeneratedContent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + contentColumns + `
		FROM generated_content
		WHERE ($1::boolean IS NULL OR published = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	var published sql.NullBool
	if filter.Published != nil {
		published = sql.NullBool{Bool: *filter.Published, Valid: true}
	}

	rows, queryErr := r.db.QueryContext(ctx, query, published, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list content: %w", queryErr)
	}
	defer rows.Close()

	return scanContent(rows)
}

func scanContent(rows *sql.Rows) ([]domain.GeneratedContent, error) {
	var items []domain.GeneratedContent
	for rows.Next() {
		var (
			c             domain.GeneratedContent
			keywordsJSON  []byte
			competitorURL sql.NullString
			publishedAt   sql.NullTime
			publishedURL  sql.NullString
			lastCheck     sql.NullTime
		)

		scanErr := rows.Scan(
			&c.ID, &c.GapID, &c.Title, &c.Slug, &c.Body, &c.MetaDescription,
			&keywordsJSON, &competitorURL, &c.Published, &publishedAt,
			&publishedURL, &c.DevToURL, &c.HashnodeURL,
			&c.CitationImprovement48h, &lastCheck, &c.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan content row: %w", scanErr)
		}

		if unmarshalErr := json.Unmarshal(keywordsJSON, &c.Keywords); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", unmarshalErr)
		}
		if competitorURL.Valid {
			c.CompetitorSourceURL = competitorURL.String
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			c.PublishedAt = &t
		}
		if publishedURL.Valid {
			c.PublishedURL = publishedURL.String
		}
		if lastCheck.Valid {
			t := lastCheck.Time
			c.LastPerformanceCheck = &t
		}

		items = append(items, c)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("content rows: %w", rowsErr)
	}

	return items, nil
}

func requireAffected(result sql.Result) error {
	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("rows affected: %w", rowsErr)
	}
	if affected == 0 {
		return ErrContentNotFound
	}
	return nil
}
