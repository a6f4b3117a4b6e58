package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spot-trainer/core/models"
)

// JobRepository handles database operations for jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// RecordStart upserts the job as running and logs a job_started event
func (r *JobRepository) RecordStart(ctx context.Context, jobID, runID string) (*models.Job, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		from, err := lockStatus(ctx, tx, jobID)
		if err != nil && !errors.Is(err, ErrJobNotFound) {
			return err
		}

		upsert := `
			INSERT INTO jobs (id, status, run_id, leases, started_at, created_at, updated_at)
			VALUES ($1, $2, $3, 1, NOW(), NOW(), NOW())
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				run_id = EXCLUDED.run_id,
				leases = jobs.leases + 1,
				started_at = COALESCE(jobs.started_at, EXCLUDED.started_at),
				halted_at = NULL,
				updated_at = NOW()
		`
		if _, err := tx.ExecContext(ctx, upsert, jobID, models.JobStatusRunning, runID); err != nil {
			return err
		}

		return insertEventTx(ctx, tx, jobID, runID, from, models.JobStatusRunning, models.ReasonJobStarted, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record start of job %s: %w", jobID, err)
	}
	return r.GetJob(ctx, jobID)
}

// RecordMetrics stores report as the job's latest metrics and logs a metrics_reported event
func (r *JobRepository) RecordMetrics(ctx context.Context, jobID, runID string, report models.MetricsReport) (*models.Job, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}

	err = r.inTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE jobs SET run_id = $2, last_epoch = $3, latest_metrics = $4, updated_at = NOW()
			WHERE id = $1
			RETURNING status
		`
		var status models.JobStatus
		err := tx.QueryRowContext(ctx, query, jobID, runID, report.Epoch, string(reportJSON)).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJobNotFound
		}
		if err != nil {
			return err
		}

		return insertEventTx(ctx, tx, jobID, runID, &status, status, models.ReasonMetricsReported, reportMeta(report))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record metrics of job %s: %w", jobID, err)
	}
	return r.GetJob(ctx, jobID)
}

// RecordHalt marks the job halted and logs a job_halted event
func (r *JobRepository) RecordHalt(ctx context.Context, jobID, runID string) (*models.Job, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		from, err := lockStatus(ctx, tx, jobID)
		if err != nil {
			return err
		}

		update := `UPDATE jobs SET status = $2, run_id = $3, halted_at = NOW(), updated_at = NOW() WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, jobID, models.JobStatusHalted, runID); err != nil {
			return err
		}

		return insertEventTx(ctx, tx, jobID, runID, from, models.JobStatusHalted, models.ReasonJobHalted, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record halt of job %s: %w", jobID, err)
	}
	return r.GetJob(ctx, jobID)
}

// GetJob retrieves a job by ID
func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	query := `
		SELECT id, status, run_id, leases, last_epoch, latest_metrics,
			started_at, halted_at, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job models.Job
	var lastEpoch sql.NullInt64
	var latestMetrics sql.NullString
	var startedAt sql.NullTime
	var haltedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID,
		&job.Status,
		&job.RunID,
		&job.Leases,
		&lastEpoch,
		&latestMetrics,
		&startedAt,
		&haltedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastEpoch.Valid {
		epoch := int(lastEpoch.Int64)
		job.LastEpoch = &epoch
	}
	if latestMetrics.Valid && latestMetrics.String != "" {
		var report models.MetricsReport
		if err := json.Unmarshal([]byte(latestMetrics.String), &report); err != nil {
			return nil, fmt.Errorf("corrupt latest_metrics for job %s: %w", jobID, err)
		}
		job.LatestMetrics = &report
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if haltedAt.Valid {
		job.HaltedAt = &haltedAt.Time
	}

	return &job, nil
}

func (r *JobRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// lockStatus reads the job's status and locks its row for the transaction
func lockStatus(ctx context.Context, tx *sql.Tx, jobID string) (*models.JobStatus, error) {
	var status models.JobStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func now() time.Time {
	return time.Now().UTC()
}
