package rest

import (
	"log/slog"
	"net/http"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/service/chat"
	"github.com/go-chi/chi/v5"
)

type MessageHandler struct {
	chat *chat.ChatService
	log  *slog.Logger
}

func NewMessageHandler(chatService *chat.ChatService, log *slog.Logger) *MessageHandler {
	return &MessageHandler{chat: chatService, log: log}
}

// SendMessageRequest also accepts the camelCase receiverId older clients post.
type SendMessageRequest struct {
	ReceiverID       models.Identity `json:"receiver_id"`
	LegacyReceiverID models.Identity `json:"receiverId"`
	Content          string          `json:"content"`
}

func (r SendMessageRequest) receiver() models.Identity {
	if r.ReceiverID.IsZero() {
		return r.LegacyReceiverID
	}
	return r.ReceiverID
}

func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/messages/{userID}", h.History)
	r.Post("/messages", h.Send)
}

// History returns the conversation between the token holder and {userID}, oldest first.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	self, ok := UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	other := models.Identity(chi.URLParam(r, "userID"))
	history, err := h.chat.GetHistory(r.Context(), models.IdentityFromInt(self), other)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, history)
}

// Send goes through the same path as the realtime channel, so live sessions of both
// participants receive the message.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	self, ok := UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var req SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), models.IdentityFromInt(self), req.receiver(), req.Content)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusCreated, msg)
}
