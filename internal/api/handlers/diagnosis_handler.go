package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosai/backend/internal/domain/entities"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

// DiagnosisService defines the diagnosis operations used by the handler.
type DiagnosisService interface {
	Diagnose(ctx context.Context, input *entities.DiagnosisInput) (string, error)
}

// DiagnosisHandler handles symptom diagnosis requests
type DiagnosisHandler struct {
	service DiagnosisService
}

// NewDiagnosisHandler creates a new diagnosis handler
func NewDiagnosisHandler(service DiagnosisService) *DiagnosisHandler {
	return &DiagnosisHandler{service: service}
}

// Diagnose handles POST /api/diagnose
func (h *DiagnosisHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	var input entities.DiagnosisInput
	if err := decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, err)
		return
	}

	diagnosis, err := h.service.Diagnose(r.Context(), &input)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithAppError(w, err)
			return
		}
		message := "Diagnosis failed"
		if appErr, ok := apperrors.As(err); ok && appErr.Type == apperrors.ErrorTypeExternal {
			message += ": " + appErr.Message
		}
		respondWithError(w, http.StatusInternalServerError, message)
		return
	}

	respondWithJSON(w, http.StatusOK, entities.DiagnosisResult{Diagnosis: diagnosis})
}
