package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/citegap/citegap/internal/domain"
)

// ErrGapNotFound is returned when a content gap does not exist.
var ErrGapNotFound = errors.New("content gap not found")

// gapColumns is the shared select list for content gap rows.
const gapColumns = `
	id, query, priority, competitor_dominating, competitor_position,
	product_current_position, status, gap_type, target_keywords,
	generation_started_at, published_at, created_at, updated_at
`

// GapRepository is the status-tracked backlog of content gaps.
type GapRepository struct {
	db *sql.DB
}

// NewGapRepository creates a gap repository.
func NewGapRepository(db *sql.DB) *GapRepository {
	return &GapRepository{db: db}
}

// Upsert merges one analyzed gap into the backlog, keyed by query among
// non-archived gaps:
//   - no existing row: insert as identified
//   - existing published: left untouched
//   - existing generating: scoring refreshed and status reset to identified
//   - otherwise: scoring refreshed, status untouched
//
// On success gap.ID holds the backlog row id, inserted or existing.
func (r *GapRepository) Upsert(ctx context.Context, gap *domain.ContentGap) error {
	var (
		existingID     int64
		existingStatus domain.GapStatus
	)

	selectErr := r.db.QueryRowContext(ctx,
		`SELECT id, status FROM content_gaps WHERE query = $1 AND status != $2`,
		gap.Query, domain.GapArchived,
	).Scan(&existingID, &existingStatus)

	if errors.Is(selectErr, sql.ErrNoRows) {
		return r.insert(ctx, gap)
	}
	if selectErr != nil {
		return fmt.Errorf("select gap: %w", selectErr)
	}

	gap.ID = existingID

	if existingStatus == domain.GapPublished {
		return nil
	}

	resetStatus := existingStatus == domain.GapGenerating
	return r.refreshScoring(ctx, existingID, gap, resetStatus)
}

// UpsertBatch upserts each gap independently; one failure does not abort
// the batch. Returns the success count and the per-item errors.
func (r *GapRepository) UpsertBatch(ctx context.Context, gaps []domain.ContentGap) (int, []error) {
	upserted := 0
	var errs []error
	for i := range gaps {
		if upsertErr := r.Upsert(ctx, &gaps[i]); upsertErr != nil {
			errs = append(errs, fmt.Errorf("gap %q: %w", gaps[i].Query, upsertErr))
			continue
		}
		upserted++
	}
	return upserted, errs
}

func (r *GapRepository) insert(ctx context.Context, gap *domain.ContentGap) error {
	keywordsJSON, marshalErr := json.Marshal(gap.TargetKeywords)
	if marshalErr != nil {
		return fmt.Errorf("marshal keywords: %w", marshalErr)
	}

	query := `
		INSERT INTO content_gaps
			(query, priority, competitor_dominating, competitor_position,
			 product_current_position, status, gap_type, target_keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	scanErr := r.db.QueryRowContext(ctx, query,
		gap.Query,
		gap.Priority,
		gap.CompetitorDominating,
		gap.CompetitorPosition,
		gap.ProductCurrentPosition,
		domain.GapIdentified,
		gap.GapType,
		keywordsJSON,
	).Scan(&gap.ID)
	if scanErr != nil {
		return fmt.Errorf("insert gap: %w", scanErr)
	}

	gap.Status = domain.GapIdentified
	return nil
}

func (r *GapRepository) refreshScoring(ctx context.Context, id int64, gap *domain.ContentGap, resetStatus bool) error {
	keywordsJSON, marshalErr := json.Marshal(gap.TargetKeywords)
	if marshalErr != nil {
		return fmt.Errorf("marshal keywords: %w", marshalErr)
	}

	query := `
		UPDATE content_gaps
		SET priority = $2,
		    competitor_dominating = $3,
		    competitor_position = $4,
		    product_current_position = $5,
		    gap_type = $6,
		    target_keywords = $7,
		    updated_at = NOW()
		WHERE id = $1
	`
	if resetStatus {
		query = `
		UPDATE content_gaps
		SET priority = $2,
		    competitor_dominating = $3,
		    competitor_position = $4,
		    product_current_position = $5,
		    gap_type = $6,
		    target_keywords = $7,
		    status = 'identified',
		    generation_started_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	}

	_, execErr := r.db.ExecContext(ctx, query,
		id,
		gap.Priority,
		gap.CompetitorDominating,
		gap.CompetitorPosition,
		gap.ProductCurrentPosition,
		gap.GapType,
		keywordsJSON,
	)
	if execErr != nil {
		return fmt.Errorf("refresh gap scoring: %w", execErr)
	}

	gap.ID = id
	return nil
}

// ResetGenerating is the crash-recovery sweep: every gap currently in
// generating goes back to identified, unconditionally, with
// generation_started_at cleared. Returns the number of gaps reset.
func (r *GapRepository) ResetGenerating(ctx context.Context) (int64, error) {
	result, execErr := r.db.ExecContext(ctx, `
		UPDATE content_gaps
		SET status = 'identified', generation_started_at = NULL, updated_at = NOW()
		WHERE status = 'generating'
	`)
	if execErr != nil {
		return 0, fmt.Errorf("reset generating gaps: %w", execErr)
	}

	reset, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, fmt.Errorf("reset rows affected: %w", rowsErr)
	}

	return reset, nil
}

// MarkGenerating claims a gap for generation. The claim is optimistic:
// there is no compare-and-swap, the generating status is the only signal.
func (r *GapRepository) MarkGenerating(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, `
		UPDATE content_gaps
		SET status = 'generating', generation_started_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`)
}

// MarkPublished advances a gap to the terminal published status.
func (r *GapRepository) MarkPublished(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, `
		UPDATE content_gaps
		SET status = 'published', published_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`)
}

// MarkIdentified reverts a gap to the eligible backlog after a failed
// generation.
func (r *GapRepository) MarkIdentified(ctx context.Context, id int64) error {
	return r.setStatus(ctx, id, `
		UPDATE content_gaps
		SET status = 'identified', generation_started_at = NULL, updated_at = NOW()
		WHERE id = $1
	`)
}

func (r *GapRepository) setStatus(ctx context.Context, id int64, query string) error {
	result, execErr := r.db.ExecContext(ctx, query, id)
	if execErr != nil {
		return fmt.Errorf("update gap status: %w", execErr)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("gap status rows affected: %w", rowsErr)
	}
	if affected == 0 {
		return ErrGapNotFound
	}

	return nil
}

// FetchEligible returns up to limit identified gaps with priority at or
// above minPriority, highest priority first, oldest first on ties.
func (r *GapRepository) FetchEligible(ctx context.Context, minPriority float64, limit int) ([]domain.ContentGap, error) {
	query := `SELECT ` + gapColumns + `
		FROM content_gaps
		WHERE status = 'identified' AND priority >= $1
		ORDER BY priority DESC, id ASC
		LIMIT $2
	`

	rows, queryErr := r.db.QueryContext(ctx, query, minPriority, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("query eligible gaps: %w", queryErr)
	}
	defer rows.Close()

	return scanGaps(rows)
}

// GetByID returns one gap or ErrGapNotFound.
func (r *GapRepository) GetByID(ctx context.Context, id int64) (*domain.ContentGap, error) {
	query := `SELECT ` + gapColumns + ` FROM content_gaps WHERE id = $1`

	rows, queryErr := r.db.QueryContext(ctx, query, id)
	if queryErr != nil {
		return nil, fmt.Errorf("query gap: %w", queryErr)
	}
	defer rows.Close()

	gaps, scanErr := scanGaps(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	if len(gaps) == 0 {
		return nil, ErrGapNotFound
	}

	return &gaps[0], nil
}

// GapFilter narrows gap listings.
type GapFilter struct {
	Status      domain.GapStatus
	MinPriority float64
	Limit       int
}

// defaultListLimit bounds unfiltered listings.
const defaultListLimit = 100

// List returns gaps matching the filter, highest priority first.
func (r *GapRepository) List(ctx context.Context, filter GapFilter) ([]domain.ContentGap, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	status := string(filter.Status)

	query := `SELECT ` + gapColumns + `
		FROM content_gaps
		WHERE ($1 = '' OR status = $1) AND priority >= $2
		ORDER BY priority DESC, id ASC
		LIMIT $3
	`

	rows, queryErr := r.db.QueryContext(ctx, query, status, filter.MinPriority, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list gaps: %w", queryErr)
	}
	defer rows.Close()

	return scanGaps(rows)
}

func scanGaps(rows *sql.Rows) ([]domain.ContentGap, error) {
	var gaps []domain.ContentGap
	for rows.Next() {
		var (
			g            domain.ContentGap
			keywordsJSON []byte
			genStarted   sql.NullTime
			publishedAt  sql.NullTime
		)

		scanErr := rows.Scan(
			&g.ID, &g.Query, &g.Priority, &g.CompetitorDominating,
			&g.CompetitorPosition, &g.ProductCurrentPosition, &g.Status,
			&g.GapType, &keywordsJSON, &genStarted, &publishedAt,
			&g.CreatedAt, &g.UpdatedAt,
		)
		if scanErr != nil {
			return nil, fmt.Errorf("scan gap row: %w", scanErr)
		}

		if unmarshalErr := json.Unmarshal(keywordsJSON, &g.TargetKeywords); unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", unmarshalErr)
		}
		if genStarted.Valid {
			t := genStarted.Time
			g.GenerationStartedAt = &t
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			g.PublishedAt = &t
		}

		gaps = append(gaps, g)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("gap rows: %w", rowsErr)
	}

	return gaps, nil
}
