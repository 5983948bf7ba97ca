package health

import (
	"encoding/json"
	"net/http"

	"github.com/infractl/infractl/pkg/db"
)

type checkResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	sessionFactory db.SessionFactory
}

// NewHandler creates a health handler. The session factory may be nil for
// servers that run without a database.
func NewHandler(sessionFactory db.SessionFactory) *Handler {
	return &Handler{sessionFactory: sessionFactory}
}

func writeCheck(w http.ResponseWriter, code int, response checkResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler answers /healthz. It reports ok as long as the process can
// serve HTTP at all; orchestrators restart the process when it stops doing so.
func (h *Handler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeCheck(w, http.StatusOK, checkResponse{Status: "ok"})
}

// ReadinessHandler answers /readyz. Traffic is accepted only once startup has
// finished, shutdown has not begun, and the database answers a ping.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	state := GetReadinessState()

	if state.IsShuttingDown() {
		writeCheck(w, http.StatusServiceUnavailable, checkResponse{
			Status: "shutting_down",
			Reason: "Application is shutting down",
		})
		return
	}
	if !state.IsReady() {
		writeCheck(w, http.StatusServiceUnavailable, checkResponse{
			Status: "not_ready",
			Reason: "Application is not ready",
		})
		return
	}

	if h.sessionFactory != nil {
		sqlDB := h.sessionFactory.DirectDB()
		if sqlDB == nil {
			writeCheck(w, http.StatusServiceUnavailable, checkResponse{
				Status: "not_ready",
				Reason: "Database connection not available",
			})
			return
		}
		if err := sqlDB.PingContext(r.Context()); err != nil {
			writeCheck(w, http.StatusServiceUnavailable, checkResponse{
				Status: "not_ready",
				Reason: "Database ping failed",
			})
			return
		}
	}

	writeCheck(w, http.StatusOK, checkResponse{Status: "ok"})
}
