package routes

import (
	"spot-trainer/api/jobcontrol"
	"spot-trainer/api/rest/handlers"
	"spot-trainer/core/repository"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRoutes configures the job control API. The paths mirror what
// jobcontrol.HTTPNotifier posts to: {app_domain}/{job_id}/{action}.
func SetupRoutes(r *mux.Router, store repository.Store, logger *zap.Logger) {
	jobHandler := handlers.NewJobHandler(store, logger)

	// Registered first so it is not taken for a job id
	r.HandleFunc("/health", handlers.Health).Methods("GET")

	r.HandleFunc("/{job_id}/"+jobcontrol.ActionStart, jobHandler.StartJob).Methods("POST")
	r.HandleFunc("/{job_id}/"+jobcontrol.ActionMetrics, jobHandler.ReportMetrics).Methods("POST")
	r.HandleFunc("/{job_id}/"+jobcontrol.ActionHalt, jobHandler.HaltJob).Methods("POST")
	r.HandleFunc("/{job_id}", jobHandler.GetJob).Methods("GET")
	r.HandleFunc("/{job_id}/events", jobHandler.GetJobEvents).Methods("GET")
}
