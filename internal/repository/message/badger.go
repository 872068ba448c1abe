package message

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/dgraph-io/badger/v4"
)

const sequenceBandwidth = 128

var sequenceKey = []byte("seq:messages")

// BadgerRepository keeps the message log in an embedded Badger database.
//
// Keys have the form "msg:{pair}:{created_at padded}:{id padded}" where pair is the
// hex-encoded, sorted identity pair. Both directions of a conversation share one prefix,
// and the 19-digit zero padding makes lexicographic key order equal (created_at, id) order,
// so a forward prefix scan yields the history already sorted.
type BadgerRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time
}

func NewBadgerRepository(db *badger.DB) (*BadgerRepository, error) {
	seq, err := db.GetSequence(sequenceKey, sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("failed to lease message sequence: %w", err)
	}
	return &BadgerRepository{db: db, seq: seq, now: time.Now}, nil
}

// Close returns the unused part of the leased id range.
func (r *BadgerRepository) Close() error {
	return r.seq.Release()
}

func (r *BadgerRepository) Append(ctx context.Context, senderID, receiverID models.Identity, content string) (models.Message, error) {
	if err := validate(senderID, receiverID, content); err != nil {
		return models.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Message{}, &models.PersistenceError{Op: "append", Err: err}
	}

	next, err := r.seq.Next()
	if err != nil {
		return models.Message{}, &models.PersistenceError{Op: "append", Err: fmt.Errorf("failed to allocate message id: %w", err)}
	}
	// Sequences start at zero; ids start at one like a BIGSERIAL.
	msg := models.Message{
		ID:         int64(next) + 1,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  r.now().UTC(),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return models.Message{}, &models.PersistenceError{Op: "append", Err: err}
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), value)
	})
	if err != nil {
		return models.Message{}, &models.PersistenceError{Op: "append", Err: fmt.Errorf("failed to store message: %w", err)}
	}

	return msg, nil
}

func (r *BadgerRepository) Conversation(ctx context.Context, a, b models.Identity) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "conversation", Err: err}
	}

	prefix := []byte("msg:" + pairKey(a, b) + ":")
	messages := make([]models.Message, 0)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var msg models.Message
				if err := json.Unmarshal(val, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &models.PersistenceError{Op: "conversation", Err: fmt.Errorf("failed to scan conversation: %w", err)}
	}

	return messages, nil
}

func messageKey(msg models.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%019d",
		pairKey(msg.SenderID, msg.ReceiverID),
		msg.CreatedAt.UnixNano(),
		msg.ID,
	))
}

func pairKey(a, b models.Identity) string {
	if b < a {
		a, b = b, a
	}
	return hex.EncodeToString([]byte(a)) + "." + hex.EncodeToString([]byte(b))
}
