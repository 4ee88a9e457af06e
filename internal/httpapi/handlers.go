package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/conplan/scheduler/internal/config"
	"github.com/conplan/scheduler/internal/schederr"
	"github.com/conplan/scheduler/internal/scheduler"
	"github.com/conplan/scheduler/pkg/logger"
)

// Server holds the dependencies every handler needs; it owns no
// scheduling state of its own, so it's safe to share across requests.
type Server struct {
	log logger.Logger
}

// NewServer builds a Server around log; Routes builds its router.
func NewServer(log logger.Logger) *Server {
	return &Server{log: log}
}

// Routes returns a fresh mux.Router: logging, recovery, and CORS middleware
// wrapping the schedule endpoint and a health check.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(s.log), RecoveryMiddleware(s.log), CORSMiddleware())
	r.HandleFunc("/v1/schedule", s.handleSchedule).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSchedule decodes a RunBundle from the request body, runs the
// scheduler, and returns the resulting schedule as JSON.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var bundle config.RunBundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		writeJSONError(w, http.StatusBadRequest, "decoding request body: "+err.Error())
		return
	}

	ctx, err := bundle.ToContext()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := scheduler.Run(ctx, s.log)
	if err != nil {
		status := http.StatusUnprocessableEntity
		var schedErr *schederr.Error
		if errors.As(err, &schedErr) && schedErr.Kind == schederr.KindInvalidInput {
			status = http.StatusBadRequest
		}
		writeJSONError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(scheduleResponse{
		Tasks:       sched.Tasks,
		Warnings:    sched.Warnings,
		ProjectDays: sched.Analysis.ProjectDuration,
	})
}

type scheduleResponse struct {
	Tasks       interface{} `json:"tasks"`
	Warnings    interface{} `json:"warnings"`
	ProjectDays int         `json:"project_duration_days"`
}
