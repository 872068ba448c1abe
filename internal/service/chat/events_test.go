package chat

import (
	"context"
	"testing"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/stretchr/testify/require"
)

func TestHandle_Join_Send_Leave(t *testing.T) {
	req := require.New(t)
	svc := newService(t)
	ctx := context.Background()
	aliceTab, bobTab := &recordingChannel{}, &recordingChannel{}

	// Given both sides joined through events
	_, err := svc.Handle(ctx, aliceTab, JoinEvent{Identity: "alice"})
	req.NoError(err)
	_, err = svc.Handle(ctx, bobTab, JoinEvent{Identity: "bob"})
	req.NoError(err)

	// When alice sends without naming herself
	msg, err := svc.Handle(ctx, aliceTab, SendEvent{ReceiverID: "bob", Content: "hi"})

	// Then the bound identity is the sender
	req.NoError(err)
	req.NotNil(msg)
	req.Equal(models.Identity("alice"), msg.SenderID)
	req.Len(aliceTab.Received(), 1)
	req.Len(bobTab.Received(), 1)

	// When bob leaves, further sends do not reach him
	_, err = svc.Handle(ctx, bobTab, LeaveEvent{})
	req.NoError(err)
	_, err = svc.Handle(ctx, aliceTab, SendEvent{ReceiverID: "bob", Content: "gone?"})
	req.NoError(err)
	req.Len(bobTab.Received(), 1)
	req.Len(aliceTab.Received(), 2)
}

func TestHandle_Send_Unjoined_Without_Sender_Fails_Validation(t *testing.T) {
	svc := newService(t)

	msg, err := svc.Handle(context.Background(), &recordingChannel{}, SendEvent{ReceiverID: "bob", Content: "hi"})

	require.Nil(t, msg)
	require.True(t, models.IsValidation(err))
}

func TestHandle_Leave_Unjoined_Is_Noop(t *testing.T) {
	svc := newService(t)

	msg, err := svc.Handle(context.Background(), &recordingChannel{}, LeaveEvent{})

	require.NoError(t, err)
	require.Nil(t, msg)
}
