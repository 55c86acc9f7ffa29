// Package httpapi serves the daemon's HTTP surface: health, status,
// Prometheus metrics and operator controls.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/metrics"
	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

const defaultLogLimit = 100

// Server is the simulation HTTP API server
type Server struct {
	ctrl        *simulation.Controller
	logs        persistence.SimulationLogRepository
	httpMetrics *metrics.HTTPMetricsCollector
	metricsPath string
}

// NewServer creates a server for ctrl
func NewServer(ctrl *simulation.Controller) *Server {
	return &Server{ctrl: ctrl}
}

// EnableMetrics mounts the Prometheus registry at path and records request metrics
func (s *Server) EnableMetrics(path string, collector *metrics.HTTPMetricsCollector) {
	s.metricsPath = path
	s.httpMetrics = collector
}

// SetLogRepository enables GET /logs
func (s *Server) SetLogRepository(repo persistence.SimulationLogRepository) { s.logs = repo }

// Handler returns the chi router with all routes mounted
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware(s.httpMetrics))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleAddTask)
		r.Post("/{id}/force-complete", s.handleForceComplete)
	})

	r.Route("/control", func(r chi.Router) {
		r.Post("/pause", s.handleControl(s.ctrl.Pause))
		r.Post("/resume", s.handleControl(s.ctrl.Resume))
		r.Post("/start-day", s.handleControl(s.ctrl.StartDay))
		r.Post("/speed", s.handleSpeed)
		r.Post("/sweep", s.handleSweep)
		r.Post("/snapshot", s.handleSnapshot)
	})

	if s.logs != nil {
		r.Get("/logs", s.handleLogs)
	}

	if s.metricsPath != "" {
		r.Handle(s.metricsPath, metrics.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.Status()
	code := http.StatusOK
	if !st.Healthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":        st.Lifecycle,
		"last_sweep_ok": st.LastSweepOK,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("fresh") == "true" {
		st, err := s.ctrl.Refresh(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	records, err := s.ctrl.Tasks(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": records, "count": len(records)})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req simulation.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	record, err := s.ctrl.AddTask(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleForceComplete(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctrl.ForceComplete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleControl(action func(context.Context) (simulation.Status, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := action(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	st, err := s.ctrl.SetSpeed(r.Context(), body.Speed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.ctrl.Sweep(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.SaveSnapshot(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultLogLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var level *string
	if raw := q.Get("level"); raw != "" {
		level = &raw
	}

	var since *time.Time
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = &parsed
	}

	sessionID := q.Get("session")
	if sessionID == "" {
		sessionID = s.ctrl.Status().SessionID
	}

	entries, err := s.logs.GetLogs(r.Context(), sessionID, limit, level, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session_id": sessionID, "logs": entries})
}

// writeDomainError maps engine errors onto status codes
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation *shared.ValidationError
		notFound   *task.ErrTaskNotFound
		duplicate  *task.ErrDuplicateTask
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &duplicate):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, simulation.ErrRunnerStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"code":    status,
		},
	})
}
