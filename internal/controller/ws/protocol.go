package ws

import (
	"encoding/json"

	"github.com/christmas-fire/nexus-collab/internal/models"
)

const (
	TypeJoin           = "join"
	TypeAuth           = "auth"
	TypeSendMessage    = "send_message"
	TypeGetHistory     = "get_history"
	TypeReceiveMessage = "receive_message"
	TypeJoinStatus     = "join_status"
	TypeAuthStatus     = "auth_status"
	TypeHistory        = "history"
	TypeError          = "error"
)

type WsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinRequest struct {
	UserID models.Identity `json:"user_id"`
}

type JoinResponse struct {
	Success bool            `json:"success"`
	UserID  models.Identity `json:"user_id,omitempty"`
	Message string          `json:"message"`
}

type AuthRequest struct {
	Token string `json:"token"`
}

type AuthResponse struct {
	Success bool            `json:"success"`
	UserID  models.Identity `json:"user_id,omitempty"`
	Message string          `json:"message"`
}

type SendMessageRequest struct {
	SenderID   models.Identity `json:"sender_id,omitempty"`
	ReceiverID models.Identity `json:"receiver_id"`
	Content    string          `json:"content"`
}

type GetHistoryRequest struct {
	UserID models.Identity `json:"user_id"`
}

type HistoryResponse struct {
	UserID   models.Identity  `json:"user_id"`
	Messages []models.Message `json:"messages"`
}

type ErrorResponse struct {
	Request string `json:"request,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func NewWsMessage(typ string, payload interface{}) ([]byte, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	msg := WsMessage{
		Type:    typ,
		Payload: p,
	}

	return json.Marshal(msg)
}
