package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/citegap/citegap/internal/domain"
)

// MetricsRepository persists daily share-of-voice rollups.
type MetricsRepository struct {
	db *sql.DB
}

// NewMetricsRepository creates a metrics repository.
func NewMetricsRepository(db *sql.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// UpsertDaily stores the rollup for its date, replacing any previous row.
// The rollup is derived data; rerunning the aggregator is always safe.
func (r *MetricsRepository) UpsertDaily(ctx context.Context, m *domain.DailyMetrics) error {
	platformJSON, marshalErr := json.Marshal(m.PlatformShareOfVoice)
	if marshalErr != nil {
		return fmt.Errorf("marshal platform breakdown: %w", marshalErr)
	}

	topJSON, marshalErr := json.Marshal(m.TopQueries)
	if marshalErr != nil {
		return fmt.Errorf("marshal top queries: %w", marshalErr)
	}

	losingJSON, marshalErr := json.Marshal(m.LosingQueries)
	if marshalErr != nil {
		return fmt.Errorf("marshal losing queries: %w", marshalErr)
	}

	competitorJSON, marshalErr := json.Marshal(m.CompetitorMentions)
	if marshalErr != nil {
		return fmt.Errorf("marshal competitor mentions: %w", marshalErr)
	}

	query := `
		INSERT INTO daily_metrics
			(date, total_queries_tested, product_mentioned_count, share_of_voice,
			 avg_position, position_1_count, position_2_count, position_3_count,
			 platform_share_of_voice, top_queries, losing_queries, competitor_mentions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (date) DO UPDATE SET
			total_queries_tested = EXCLUDED.total_queries_tested,
			product_mentioned_count = EXCLUDED.product_mentioned_count,
			share_of_voice = EXCLUDED.share_of_voice,
			avg_position = EXCLUDED.avg_position,
			position_1_count = EXCLUDED.position_1_count,
			position_2_count = EXCLUDED.position_2_count,
			position_3_count = EXCLUDED.position_3_count,
			platform_share_of_voice = EXCLUDED.platform_share_of_voice,
			top_queries = EXCLUDED.top_queries,
			losing_queries = EXCLUDED.losing_queries,
			competitor_mentions = EXCLUDED.competitor_mentions
	`

	_, execErr := r.db.ExecContext(ctx, query,
		m.Date,
		m.TotalQueriesTested,
		m.ProductMentionedCount,
		m.ShareOfVoice,
		m.AvgPosition,
		m.Position1Count,
		m.Position2Count,
		m.Position3Count,
		platformJSON,
		topJSON,
		losingJSON,
		competitorJSON,
	)
	if execErr != nil {
		return fmt.Errorf("upsert daily metrics: %w", execErr)
	}

	return nil
}
