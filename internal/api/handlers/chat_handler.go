package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosai/backend/internal/domain/entities"
	apperrors "github.com/diagnosai/backend/pkg/errors"
)

// ChatService defines the chat operations used by the handler.
type ChatService interface {
	Reply(ctx context.Context, message string) (*entities.ChatReply, error)
}

// ChatHandler answers free-form health questions
type ChatHandler struct {
	service ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var msg entities.ChatMessage
	if err := decodeAndValidate(r, &msg); err != nil {
		respondWithAppError(w, err)
		return
	}

	reply, err := h.service.Reply(r.Context(), msg.Message)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithAppError(w, err)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to process your request")
		return
	}

	respondWithJSON(w, http.StatusOK, reply)
}
