package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/citegap/citegap/internal/domain"
)

// QueryRepository reads the stored active query set the prober tests.
type QueryRepository struct {
	db *sql.DB
}

// NewQueryRepository creates a tracked-query repository.
func NewQueryRepository(db *sql.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// ListActive returns all active tracked queries in insertion order.
func (r *QueryRepository) ListActive(ctx context.Context) ([]domain.TrackedQuery, error) {
	rows, queryErr := r.db.QueryContext(ctx, `
		SELECT id, query, category, active
		FROM tracked_queries
		WHERE active
		ORDER BY id ASC
	`)
	if queryErr != nil {
		return nil, fmt.Errorf("query tracked queries: %w", queryErr)
	}
	defer rows.Close()

	var queries []domain.TrackedQuery
	for rows.Next() {
		var q domain.TrackedQuery
		if scanErr := rows.Scan(&q.ID, &q.Query, &q.Category, &q.Active); scanErr != nil {
			return nil, fmt.Errorf("scan tracked query: %w", scanErr)
		}
		queries = append(queries, q)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("tracked query rows: %w", rowsErr)
	}

	return queries, nil
}
