package repository

import (
	"context"
	"errors"

	"spot-trainer/core/models"
)

// ErrJobNotFound is returned for notifications about a job that never started
var ErrJobNotFound = errors.New("job not found")

// DefaultEventLimit caps ListEvents when the caller passes no limit
const DefaultEventLimit = 100

// Store records the notifications trainers send to the job control API
type Store interface {
	// RecordStart marks the job running, creating it on first start, and
	// counts a new lease.
	RecordStart(ctx context.Context, jobID, runID string) (*models.Job, error)
	// RecordMetrics keeps report as the job's latest metrics
	RecordMetrics(ctx context.Context, jobID, runID string, report models.MetricsReport) (*models.Job, error)
	// RecordHalt marks the job halted after a pre-emption checkpoint
	RecordHalt(ctx context.Context, jobID, runID string) (*models.Job, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	// ListEvents returns the job's events, newest first
	ListEvents(ctx context.Context, jobID string, limit int) ([]models.JobEvent, error)
}

func reportMeta(report models.MetricsReport) map[string]interface{} {
	meta := map[string]interface{}{
		"epoch":    report.Epoch,
		"training": report.Training,
	}
	if report.Validation != nil {
		meta["validation"] = report.Validation
	}
	return meta
}
