package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosai/backend/internal/domain/entities"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

// HealthInfoService defines the public health data operations used by the handler.
type HealthInfoService interface {
	Lookup(ctx context.Context, query string) (*entities.HealthInfo, error)
}

// HealthInfoHandler serves cached public health data
type HealthInfoHandler struct {
	service HealthInfoService
}

// NewHealthInfoHandler creates a new health info handler
func NewHealthInfoHandler(service HealthInfoService) *HealthInfoHandler {
	return &HealthInfoHandler{service: service}
}

// GetHealthInfo handles GET /api/healthdata/health-info/{query}
func (h *HealthInfoHandler) GetHealthInfo(w http.ResponseWriter, r *http.Request) {
	query := r.PathValue("query")
	if query == "" {
		respondWithAppError(w, apperrors.NewValidationError("query is required",
			apperrors.FieldError{Field: "query", Rule: "required"}))
		return
	}

	info, err := h.service.Lookup(r.Context(), query)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}
