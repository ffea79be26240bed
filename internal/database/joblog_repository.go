package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/citegap/citegap/internal/domain"
	"github.com/google/uuid"
)

// JobLogRepository persists the pipeline run audit trail.
type JobLogRepository struct {
	db *sql.DB
}

// NewJobLogRepository creates a job log repository.
func NewJobLogRepository(db *sql.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

// Insert stores one run record. An empty ID is assigned a new UUID.
func (r *JobLogRepository) Insert(ctx context.Context, log *domain.JobLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	summaryJSON, marshalErr := json.Marshal(log.Summary)
	if marshalErr != nil {
		return fmt.Errorf("marshal summary: %w", marshalErr)
	}

	errorsJSON, marshalErr := json.Marshal(log.Errors)
	if marshalErr != nil {
		return fmt.Errorf("marshal errors: %w", marshalErr)
	}

	query := `
		INSERT INTO job_logs (id, job_type, status, started_at, completed_at, summary, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, execErr := r.db.ExecContext(ctx, query,
		log.ID,
		log.JobType,
		log.Status,
		log.StartedAt,
		log.CompletedAt,
		summaryJSON,
		errorsJSON,
	)
	if execErr != nil {
		return fmt.Errorf("insert job log: %w", execErr)
	}

	return nil
}
