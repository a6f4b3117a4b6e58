package models

import "time"

// Job is the control-plane view of a training job. A job keeps its ID across
// every instance lease it runs on; each lease reports a fresh RunID.
type Job struct {
	ID            string
	Status        JobStatus
	RunID         string // Lease that reported most recently
	Leases        int    // Number of start notifications received
	LastEpoch     *int
	LatestMetrics *MetricsReport
	StartedAt     *time.Time
	HaltedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusHalted  JobStatus = "halted" // Checkpointed after a pre-emption notice
)
