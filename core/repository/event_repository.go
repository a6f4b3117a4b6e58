package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"spot-trainer/core/models"

	"github.com/google/uuid"
)

// EventRepository handles database operations for job events
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListEvents retrieves events for a job, newest first
func (r *EventRepository) ListEvents(ctx context.Context, jobID string, limit int) ([]models.JobEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	query := `
		SELECT id, job_id, run_id, at, from_status, to_status, reason, meta_json
		FROM job_events
		WHERE job_id = $1
		ORDER BY at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events of job %s: %w", jobID, err)
	}
	defer rows.Close()

	events := []models.JobEvent{}
	for rows.Next() {
		var event models.JobEvent
		var fromStatus sql.NullString
		var metaJSON string

		err := rows.Scan(
			&event.ID,
			&event.JobID,
			&event.RunID,
			&event.At,
			&fromStatus,
			&event.ToStatus,
			&event.Reason,
			&metaJSON,
		)
		if err != nil {
			return nil, err
		}

		if fromStatus.Valid {
			status := models.JobStatus(fromStatus.String)
			event.FromStatus = &status
		}
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &event.MetaJSON); err != nil {
				return nil, fmt.Errorf("corrupt meta_json on event %s: %w", event.ID, err)
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func insertEventTx(
	ctx context.Context,
	tx *sql.Tx,
	jobID, runID string,
	fromStatus *models.JobStatus,
	toStatus models.JobStatus,
	reason string,
	meta map[string]interface{},
) error {
	query := `
		INSERT INTO job_events (id, job_id, run_id, at, from_status, to_status, reason, meta_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var fromStatusStr *string
	if fromStatus != nil {
		s := string(*fromStatus)
		fromStatusStr = &s
	}

	metaJSON := []byte("{}")
	if meta != nil {
		var err error
		if metaJSON, err = json.Marshal(meta); err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, query, uuid.NewString(), jobID, runID, now(), fromStatusStr, toStatus, reason, string(metaJSON))
	return err
}

// PostgresStore is the Store backed by the jobs and job_events tables
type PostgresStore struct {
	*JobRepository
	*EventRepository
}

// NewPostgresStore creates a Store on db
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{
		JobRepository:   NewJobRepository(db),
		EventRepository: NewEventRepository(db),
	}
}
