package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"spot-trainer/api/jobcontrol"
	"spot-trainer/core/models"
	"spot-trainer/core/repository"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// JobHandler receives trainer notifications and serves job state
type JobHandler struct {
	store  repository.Store
	logger *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(store repository.Store, logger *zap.Logger) *JobHandler {
	return &JobHandler{store: store, logger: logger}
}

// JobResponse is the JSON view of a job
type JobResponse struct {
	ID            string                `json:"id"`
	Status        models.JobStatus      `json:"status"`
	RunID         string                `json:"run_id,omitempty"`
	Leases        int                   `json:"leases"`
	LastEpoch     *int                  `json:"last_epoch,omitempty"`
	LatestMetrics *models.MetricsReport `json:"latest_metrics,omitempty"`
	StartedAt     *time.Time            `json:"started_at,omitempty"`
	HaltedAt      *time.Time            `json:"halted_at,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// StartJob handles POST /{job_id}/start
func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	jobID, runID := mux.Vars(r)["job_id"], r.Header.Get(jobcontrol.RunIDHeader)

	job, err := h.store.RecordStart(r.Context(), jobID, runID)
	if err != nil {
		h.fail(w, jobID, err)
		return
	}

	h.logger.Info("job started", zap.String("job_id", jobID), zap.String("run_id", runID), zap.Int("leases", job.Leases))
	writeJSON(w, http.StatusOK, toResponse(job))
}

// ReportMetrics handles POST /{job_id}/metrics
func (h *JobHandler) ReportMetrics(w http.ResponseWriter, r *http.Request) {
	jobID, runID := mux.Vars(r)["job_id"], r.Header.Get(jobcontrol.RunIDHeader)

	var report models.MetricsReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "Invalid metrics body: "+err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.store.RecordMetrics(r.Context(), jobID, runID, report)
	if err != nil {
		h.fail(w, jobID, err)
		return
	}

	h.logger.Debug("metrics reported", zap.String("job_id", jobID), zap.Int("epoch", report.Epoch))
	writeJSON(w, http.StatusOK, toResponse(job))
}

// HaltJob handles POST /{job_id}/halt
func (h *JobHandler) HaltJob(w http.ResponseWriter, r *http.Request) {
	jobID, runID := mux.Vars(r)["job_id"], r.Header.Get(jobcontrol.RunIDHeader)

	job, err := h.store.RecordHalt(r.Context(), jobID, runID)
	if err != nil {
		h.fail(w, jobID, err)
		return
	}

	h.logger.Info("job halted after pre-emption", zap.String("job_id", jobID), zap.String("run_id", runID))
	writeJSON(w, http.StatusOK, toResponse(job))
}

// GetJob handles GET /{job_id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.fail(w, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(job))
}

// GetJobEvents handles GET /{job_id}/events
func (h *JobHandler) GetJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	limit := repository.DefaultEventLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	// Verify job exists
	if _, err := h.store.GetJob(r.Context(), jobID); err != nil {
		h.fail(w, jobID, err)
		return
	}

	events, err := h.store.ListEvents(r.Context(), jobID, limit)
	if err != nil {
		h.fail(w, jobID, err)
		return
	}

	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"id":        event.ID,
			"at":        event.At,
			"run_id":    event.RunID,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		if event.MetaJSON != nil {
			item["meta"] = event.MetaJSON
		}
		items[i] = item
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Health handles GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *JobHandler) fail(w http.ResponseWriter, jobID string, err error) {
	if errors.Is(err, repository.ErrJobNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	h.logger.Error("job store failure", zap.String("job_id", jobID), zap.Error(err))
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func toResponse(job *models.Job) JobResponse {
	return JobResponse{
		ID:            job.ID,
		Status:        job.Status,
		RunID:         job.RunID,
		Leases:        job.Leases,
		LastEpoch:     job.LastEpoch,
		LatestMetrics: job.LatestMetrics,
		StartedAt:     job.StartedAt,
		HaltedAt:      job.HaltedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
