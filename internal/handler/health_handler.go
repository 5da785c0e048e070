package handler

import (
	"net/http"
	"time"

	"github.com/kh1012/half/internal/session"
	"github.com/kh1012/half/pkg/logger"
)

// HealthHandler reports process and session health
type HealthHandler struct {
	session *session.Session
	log     *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sess *session.Session, log *logger.Logger) *HealthHandler {
	return &HealthHandler{session: sess, log: log}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Ready:     h.session.Ready(),
		Timestamp: time.Now().UTC(),
		Service:   "half",
	})
}
