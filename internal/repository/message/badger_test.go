package message

import (
	"context"
	"testing"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newBadgerRepository(t *testing.T) *BadgerRepository {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repo, err := NewBadgerRepository(db)
	req.NoError(err)
	t.Cleanup(func() {
		repo.Close()
		db.Close()
	})
	return repo
}

func TestBadger_Append_AssignsIDAndTimestamp(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepository(t)
	ctx := context.Background()

	msg, err := repo.Append(ctx, "alice", "bob", "hi")

	req.NoError(err)
	req.Positive(msg.ID)
	req.False(msg.CreatedAt.IsZero())
	req.Equal(models.Identity("alice"), msg.SenderID)
	req.Equal(models.Identity("bob"), msg.ReceiverID)
	req.Equal("hi", msg.Content)
}

func TestBadger_Append_Validation(t *testing.T) {
	repo := newBadgerRepository(t)
	ctx := context.Background()

	tests := []struct {
		name               string
		sender, receiver   models.Identity
		content, wantField string
	}{
		{"missing sender", "", "bob", "hi", "sender_id"},
		{"missing receiver", "alice", "", "hi", "receiver_id"},
		{"empty content", "alice", "bob", "", "content"},
		{"blank content", "alice", "bob", "  \n", "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := repo.Append(ctx, tt.sender, tt.receiver, tt.content)

			var vErr *models.ValidationError
			req.ErrorAs(err, &vErr)
			req.Equal(tt.wantField, vErr.Field)
		})
	}

	// And nothing was stored
	history, err := repo.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestBadger_Conversation_BothDirectionsInOrder(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepository(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 8, 19, 21, 38, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return at.Add(time.Duration(tick) * time.Second)
	}

	// Given messages in both directions and an unrelated conversation
	first, err := repo.Append(ctx, "alice", "bob", "hi")
	req.NoError(err)
	_, err = repo.Append(ctx, "alice", "carol", "not for bob")
	req.NoError(err)
	second, err := repo.Append(ctx, "bob", "alice", "hello")
	req.NoError(err)

	// When history is read from either side
	ab, err := repo.Conversation(ctx, "alice", "bob")
	req.NoError(err)
	ba, err := repo.Conversation(ctx, "bob", "alice")
	req.NoError(err)

	// Then it is the same ordered pair of messages
	req.Equal([]models.Message{first, second}, ab)
	req.Equal(ab, ba)
}

func TestBadger_Conversation_SameTimestampOrderedByID(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepository(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 8, 19, 21, 38, 0, time.UTC)
	repo.now = func() time.Time { return at }

	var want []models.Message
	for _, content := range []string{"one", "two", "three"} {
		msg, err := repo.Append(ctx, "alice", "bob", content)
		req.NoError(err)
		want = append(want, msg)
	}

	got, err := repo.Conversation(ctx, "bob", "alice")
	req.NoError(err)
	req.Equal(want, got)
}

func TestBadger_Conversation_Empty(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepository(t)

	got, err := repo.Conversation(context.Background(), "alice", "nobody")

	req.NoError(err)
	req.NotNil(got)
	req.Empty(got)
}

func TestBadger_Conversation_IdentityWithSeparators(t *testing.T) {
	req := require.New(t)
	repo := newBadgerRepository(t)
	ctx := context.Background()

	// Given pairs whose naive concatenation would collide
	_, err := repo.Append(ctx, "a:b", "c", "first pair")
	req.NoError(err)
	_, err = repo.Append(ctx, "a", "b:c", "second pair")
	req.NoError(err)

	got, err := repo.Conversation(ctx, "a", "b:c")
	req.NoError(err)
	req.Len(got, 1)
	req.Equal("second pair", got[0].Content)
}

func TestBadger_Append_SurvivesReopen(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	ctx := context.Background()

	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repo, err := NewBadgerRepository(db)
	req.NoError(err)
	first, err := repo.Append(ctx, "alice", "bob", "before restart")
	req.NoError(err)
	req.NoError(repo.Close())
	req.NoError(db.Close())

	db, err = badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	repo, err = NewBadgerRepository(db)
	req.NoError(err)
	defer repo.Close()

	second, err := repo.Append(ctx, "bob", "alice", "after restart")
	req.NoError(err)
	req.Greater(second.ID, first.ID)

	history, err := repo.Conversation(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(history, 2)
	req.Equal(first.ID, history[0].ID)
}
