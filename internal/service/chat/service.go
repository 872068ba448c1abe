package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/christmas-fire/nexus-collab/internal/metrics"
	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/message"
	"github.com/christmas-fire/nexus-collab/internal/service/session"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// MessagesChannel is the Redis pub/sub channel persisted messages are announced on.
const MessagesChannel = "messages"

// ChatService is the single entry point for sending direct messages: it persists through the
// message log and then fans the stored message out to the live channels of both participants.
type ChatService struct {
	messages message.Repository
	registry *session.Registry
	redis    *redis.Client
	log      *slog.Logger
}

// NewChatService builds the coordinator. redisClient may be nil, in which case fan-out is
// performed in-process against registry; otherwise every instance fans out from its
// subscription to MessagesChannel.
func NewChatService(messages message.Repository, registry *session.Registry, redisClient *redis.Client, log *slog.Logger) *ChatService {
	return &ChatService{messages: messages, registry: registry, redis: redisClient, log: log}
}

func (s *ChatService) Registry() *session.Registry { return s.registry }

// Join binds ch to identity.
func (s *ChatService) Join(identity models.Identity, ch session.Channel) (models.Identity, error) {
	id, err := models.NormalizeIdentity(identity)
	if err != nil {
		return "", &models.ValidationError{Field: "user_id", Reason: err.Error()}
	}
	if id.IsZero() {
		return "", &models.ValidationError{Field: "user_id", Reason: "is required"}
	}
	s.registry.Join(id, ch)
	s.log.Debug("channel joined", "identity", id)
	return id, nil
}

// Leave unbinds ch, if it was bound.
func (s *ChatService) Leave(ch session.Channel) {
	if id, ok := s.registry.Leave(ch); ok {
		s.log.Debug("channel left", "identity", id)
	}
}

// SendMessage persists the message and, only once it is durably recorded, pushes it to every
// live channel of the sender and the receiver. Validation and persistence failures are
// returned and nothing is pushed. Failed pushes are logged and never reach the caller.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID models.Identity, content string) (models.Message, error) {
	sender, err := models.NormalizeIdentity(senderID)
	if err != nil {
		return models.Message{}, &models.ValidationError{Field: "sender_id", Reason: err.Error()}
	}
	receiver, err := models.NormalizeIdentity(receiverID)
	if err != nil {
		return models.Message{}, &models.ValidationError{Field: "receiver_id", Reason: err.Error()}
	}

	msg, err := s.messages.Append(ctx, sender, receiver, content)
	if err != nil {
		return models.Message{}, err
	}
	metrics.MessagesSent.Inc()

	// The registry may have changed while Append was in flight; lookups happen from here on.
	s.publish(ctx, msg)

	return msg, nil
}

func (s *ChatService) publish(ctx context.Context, msg models.Message) {
	if s.redis == nil {
		s.Deliver(ctx, msg)
		return
	}

	msgBytes, err := json.Marshal(msg)
	if err == nil {
		err = s.redis.Publish(ctx, MessagesChannel, msgBytes).Err()
	}
	if err != nil {
		// Local sessions still get the message; other instances rely on history.
		s.log.Warn("failed to publish message to redis, delivering locally", "message_id", msg.ID, "error", err)
		s.Deliver(ctx, msg)
	}
}

// Deliver pushes msg to the union of the sender's and receiver's live channels, each at most
// once, and returns how many pushes succeeded.
func (s *ChatService) Deliver(ctx context.Context, msg models.Message) int {
	targets := append(s.registry.ChannelsFor(msg.SenderID), s.registry.ChannelsFor(msg.ReceiverID)...)
	targets = lo.Uniq(targets)

	delivered := 0
	for _, ch := range targets {
		if err := ch.Push(ctx, msg); err != nil {
			owner, _ := s.registry.IdentityOf(ch)
			dErr := &models.DeliveryError{Identity: owner, Err: err}
			s.log.Warn("dropping message for channel", "message_id", msg.ID, "error", dErr)
			metrics.Deliveries.WithLabelValues(metrics.DeliveryFailed).Inc()
			continue
		}
		delivered++
		metrics.Deliveries.WithLabelValues(metrics.DeliveryOK).Inc()
	}
	return delivered
}

// GetHistory returns the conversation between a and b in chronological order.
// It is symmetric and independent of who is connected.
func (s *ChatService) GetHistory(ctx context.Context, a, b models.Identity) ([]models.Message, error) {
	idA, err := models.NormalizeIdentity(a)
	if err != nil {
		return nil, &models.ValidationError{Field: "user_id", Reason: err.Error()}
	}
	idB, err := models.NormalizeIdentity(b)
	if err != nil {
		return nil, &models.ValidationError{Field: "user_id", Reason: err.Error()}
	}
	if idA.IsZero() || idB.IsZero() {
		return nil, &models.ValidationError{Field: "user_id", Reason: "is required"}
	}

	history, err := s.messages.Conversation(ctx, idA, idB)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return history, nil
}
