package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citegap/citegap/internal/domain"
)

// CitationRepository persists and reads citation rows.
type CitationRepository struct {
	db *sql.DB
}

// NewCitationRepository creates a citation repository.
func NewCitationRepository(db *sql.DB) *CitationRepository {
	return &CitationRepository{db: db}
}

// Insert stores one citation row. Citation rows are immutable once written.
func (r *CitationRepository) Insert(ctx context.Context, c *domain.Citation) error {
	toolsJSON, marshalErr := json.Marshal(c.MentionedTools)
	if marshalErr != nil {
		return fmt.Errorf("marshal mentioned tools: %w", marshalErr)
	}

	competitorsJSON, marshalErr := json.Marshal(c.CompetitorMentioned)
	if marshalErr != nil {
		return fmt.Errorf("marshal competitors: %w", marshalErr)
	}

	query := `
		INSERT INTO citations
			(platform, query, mentioned_tools, product_mentioned, product_position,
			 product_context, competitor_mentioned, full_response, response_length,
			 query_category, probe_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	scanErr := r.db.QueryRowContext(ctx, query,
		c.Platform,
		c.Query,
		toolsJSON,
		c.ProductMentioned,
		c.ProductPosition,
		c.ProductContext,
		competitorsJSON,
		c.FullResponse,
		c.ResponseLength,
		c.QueryCategory,
		nullableString(c.ProbeError),
		createdAt,
	).Scan(&c.ID)
	if scanErr != nil {
		return fmt.Errorf("insert citation: %w", scanErr)
	}

	c.CreatedAt = createdAt
	return nil
}

// ListSince returns all citations created at or after the given time,
// oldest first.
func (r *CitationRepository) ListSince(ctx context.Context, since time.Time) ([]domain.Citation, error) {
	query := `
		SELECT id, platform, query, mentioned_tools, product_mentioned,
		       product_position, product_context, competitor_mentioned,
		       full_response, response_length, query_category, probe_error,
		       created_at
		FROM citations
		WHERE created_at >= $1
		ORDER BY created_at ASC
	`

	rows, queryErr := r.db.QueryContext(ctx, query, since)
	if queryErr != nil {
		return nil, fmt.Errorf("query citations: %w", queryErr)
	}
	defer rows.Close()

	return scanCitations(rows)
}

// ListForDate returns all citations created on the given UTC date.
func (r *CitationRepository) ListForDate(ctx context.Context, date time.Time) ([]domain.Citation, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT id, platform, query, mentioned_tools, product_mentioned,
		       product_position, product_context, competitor_mentioned,
		       full_response, response_length, query_category, probe_error,
		       created_at
		FROM citations
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at ASC
	`

	rows, queryErr := r.db.QueryContext(ctx, query, dayStart, dayEnd)
	if queryErr != nil {
		return nil, fmt.Errorf("query citations for date: %w", queryErr)
	}
	defer rows.Close()

	return scanCitations(rows)
}

// MentionWindow holds the product-mention tally for one query time window.
type MentionWindow struct {
	Total     int
	Mentioned int
}

// MentionRate tallies citations and product mentions for a query between
// from (inclusive) and to (exclusive).
func (r *CitationRepository) MentionRate(ctx context.Context, query string, from, to time.Time) (MentionWindow, error) {
	stmt := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE product_mentioned)
		FROM citations
		WHERE query = $1 AND created_at >= $2 AND created_at < $3
	`

	var w MentionWindow
	scanErr := r.db.QueryRowContext(ctx, stmt, query, from, to).Scan(&w.Total, &w.Mentioned)
	if scanErr != nil {
		return MentionWindow{}, fmt.Errorf("count mentions: %w", scanErr)
	}

	return w, nil
}

// scanCitations reads citation rows, decoding the JSONB columns.
func scanCitations(rows *sql.Rows) ([]domain.Citation, error) {
	var citations []domain.Citation
	for rows.Next() {
		var (
			c               domain.Citation
			toolsJSON       []byte
			competitorsJSON []byte
			probeError      sql.NullString
		)

		scanErr := rows.Scan(
			&c.ID, &c.Platform, &c.Query, &toolsJSON, &c.ProductMentioned,
			&c.ProductPosition, &c.ProductContext, &competitorsJSON,
			&c.FullResponse, &c.ResponseLength, &c.QueryCategory, &probeError,
			&c.CreatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan citation row: %w", scanErr)
		}

		if unmarshalErr := json.Unmarshal(toolsJSON, &c.MentionedTools); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal mentioned tools: %w", unmarshalErr)
		}
		if unmarshalErr := json.Unmarshal(competitorsJSON, &c.CompetitorMentioned); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal competitors: %w", unmarshalErr)
		}
		if probeError.Valid {
			c.ProbeError = probeError.String
		}

		citations = append(citations, c)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("citation rows: %w", rowsErr)
	}

	return citations, nil
}

// nullableString converts an empty string to a SQL NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
