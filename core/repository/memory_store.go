package repository

import (
	"context"
	"sync"
	"time"

	"spot-trainer/core/models"

	"github.com/google/uuid"
)

// MemoryStore is the Store used when no database is configured. State is
// lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   map[string]*models.Job
	events map[string][]models.JobEvent
	clock  func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*models.Job),
		events: make(map[string][]models.JobEvent),
		clock:  now,
	}
}

// RecordStart implements Store
func (s *MemoryStore) RecordStart(_ context.Context, jobID, runID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.clock()
	job, ok := s.jobs[jobID]
	var from *models.JobStatus
	if ok {
		status := job.Status
		from = &status
	} else {
		job = &models.Job{ID: jobID, CreatedAt: t}
		s.jobs[jobID] = job
	}

	job.Status = models.JobStatusRunning
	job.RunID = runID
	job.Leases++
	if job.StartedAt == nil {
		job.StartedAt = &t
	}
	job.HaltedAt = nil
	job.UpdatedAt = t

	s.appendEvent(jobID, runID, t, from, models.JobStatusRunning, models.ReasonJobStarted, nil)
	return copyJob(job), nil
}

// RecordMetrics implements Store
func (s *MemoryStore) RecordMetrics(_ context.Context, jobID, runID string, report models.MetricsReport) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	t := s.clock()
	epoch := report.Epoch
	latest := report
	job.RunID = runID
	job.LastEpoch = &epoch
	job.LatestMetrics = &latest
	job.UpdatedAt = t

	status := job.Status
	s.appendEvent(jobID, runID, t, &status, status, models.ReasonMetricsReported, reportMeta(report))
	return copyJob(job), nil
}

// RecordHalt implements Store
func (s *MemoryStore) RecordHalt(_ context.Context, jobID, runID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}

	t := s.clock()
	from := job.Status
	job.Status = models.JobStatusHalted
	job.RunID = runID
	job.HaltedAt = &t
	job.UpdatedAt = t

	s.appendEvent(jobID, runID, t, &from, models.JobStatusHalted, models.ReasonJobHalted, nil)
	return copyJob(job), nil
}

// GetJob implements Store
func (s *MemoryStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

// ListEvents implements Store
func (s *MemoryStore) ListEvents(_ context.Context, jobID string, limit int) ([]models.JobEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = DefaultEventLimit
	}

	// Stored oldest first
	stored := s.events[jobID]
	events := make([]models.JobEvent, 0, len(stored))
	for i := len(stored) - 1; i >= 0 && len(events) < limit; i-- {
		events = append(events, stored[i])
	}
	return events, nil
}

func (s *MemoryStore) appendEvent(
	jobID, runID string,
	at time.Time,
	from *models.JobStatus,
	to models.JobStatus,
	reason string,
	meta map[string]interface{},
) {
	s.events[jobID] = append(s.events[jobID], models.JobEvent{
		ID:         uuid.NewString(),
		JobID:      jobID,
		RunID:      runID,
		At:         at,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		MetaJSON:   meta,
	})
}

func copyJob(job *models.Job) *models.Job {
	c := *job
	return &c
}
