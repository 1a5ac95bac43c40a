package handlers

import (
	"net/http"
)

// SystemHandler serves the root and liveness endpoints
type SystemHandler struct {
	service string
	version string
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(service, version string) *SystemHandler {
	return &SystemHandler{service: service, version: version}
}

// Root handles GET /
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to DiagnosAI Backend",
	})
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
		"version": h.version,
	})
}
