//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package message

import (
	"context"
	"strings"

	"github.com/christmas-fire/nexus-collab/internal/models"
)

// Repository is the durable, append-only message log.
type Repository interface {
	// Append validates and stores one message, assigning its id and creation time.
	Append(ctx context.Context, senderID, receiverID models.Identity, content string) (models.Message, error)
	// Conversation returns every message exchanged between a and b in either direction,
	// ordered by creation time, then id.
	Conversation(ctx context.Context, a, b models.Identity) ([]models.Message, error)
}

func validate(senderID, receiverID models.Identity, content string) error {
	if senderID.IsZero() {
		return &models.ValidationError{Field: "sender_id", Reason: "is required"}
	}
	if receiverID.IsZero() {
		return &models.ValidationError{Field: "receiver_id", Reason: "is required"}
	}
	if strings.TrimSpace(content) == "" {
		return &models.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}
