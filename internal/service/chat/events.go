package chat

import (
	"context"
	"fmt"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/service/session"
)

// Event is a transport event addressed to the coordinator: JoinEvent, SendEvent or LeaveEvent.
type Event interface {
	isEvent()
}

type JoinEvent struct {
	Identity models.Identity
}

// SendEvent with an empty SenderID is sent as the identity the channel joined under.
type SendEvent struct {
	SenderID   models.Identity
	ReceiverID models.Identity
	Content    string
}

type LeaveEvent struct{}

func (JoinEvent) isEvent()  {}
func (SendEvent) isEvent()  {}
func (LeaveEvent) isEvent() {}

// Handle dispatches one transport event raised by ch. Only SendEvent yields a message.
func (s *ChatService) Handle(ctx context.Context, ch session.Channel, evt Event) (*models.Message, error) {
	switch e := evt.(type) {
	case JoinEvent:
		_, err := s.Join(e.Identity, ch)
		return nil, err
	case SendEvent:
		sender := e.SenderID
		if sender.IsZero() {
			sender, _ = s.registry.IdentityOf(ch)
		}
		msg, err := s.SendMessage(ctx, sender, e.ReceiverID, e.Content)
		if err != nil {
			return nil, err
		}
		return &msg, nil
	case LeaveEvent:
		s.Leave(ch)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown event %T", evt)
	}
}
