package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosai/backend/internal/domain/entities"
)

// ReferralService defines the referral operations used by the handler.
type ReferralService interface {
	FindReferrals(ctx context.Context, req *entities.ReferralRequest) (*entities.ReferralResult, error)
}

// ReferralHandler finds nearby facilities for a diagnosis
type ReferralHandler struct {
	service ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(service ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

// FindReferrals handles POST /api/referral/find
func (h *ReferralHandler) FindReferrals(w http.ResponseWriter, r *http.Request) {
	var req entities.ReferralRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithAppError(w, err)
		return
	}

	result, err := h.service.FindReferrals(r.Context(), &req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
