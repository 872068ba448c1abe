package message

import (
	"context"
	"fmt"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Append(ctx context.Context, senderID, receiverID models.Identity, content string) (models.Message, error) {
	if err := validate(senderID, receiverID, content); err != nil {
		return models.Message{}, err
	}

	query := "INSERT INTO messages (sender_id, receiver_id, content) VALUES ($1, $2, $3) RETURNING id, created_at"

	msg := models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	err := r.db.QueryRow(ctx, query, senderID.String(), receiverID.String(), content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, &models.PersistenceError{Op: "append", Err: fmt.Errorf("failed to insert message: %w", err)}
	}
	msg.CreatedAt = msg.CreatedAt.UTC()

	return msg, nil
}

func (r *postgresRepository) Conversation(ctx context.Context, a, b models.Identity) ([]models.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, a.String(), b.String())
	if err != nil {
		return nil, &models.PersistenceError{Op: "conversation", Err: fmt.Errorf("failed to query conversation: %w", err)}
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			msg                  models.Message
			senderID, receiverID string
		)
		if err := rows.Scan(&msg.ID, &senderID, &receiverID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, &models.PersistenceError{Op: "conversation", Err: fmt.Errorf("failed to scan message row: %w", err)}
		}
		msg.SenderID = models.Identity(senderID)
		msg.ReceiverID = models.Identity(receiverID)
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "conversation", Err: fmt.Errorf("error iterating message rows: %w", err)}
	}

	return messages, nil
}
