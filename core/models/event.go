package models

import "time"

// Event reasons recorded by the control plane
const (
	ReasonJobStarted      = "job_started"
	ReasonMetricsReported = "metrics_reported"
	ReasonJobHalted       = "job_halted"
)

// JobEvent represents a notification received for a job
type JobEvent struct {
	ID         string
	JobID      string
	RunID      string
	At         time.Time
	FromStatus *JobStatus
	ToStatus   JobStatus
	Reason     string
	MetaJSON   map[string]interface{} // Additional metadata (metrics report for metrics events)
}
