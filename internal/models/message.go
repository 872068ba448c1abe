package models

import "time"

type Message struct {
	ID         int64     `json:"id"`
	SenderID   Identity  `json:"sender_id"`
	ReceiverID Identity  `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Involves reports whether id is one of the two participants.
func (m Message) Involves(id Identity) bool {
	return m.SenderID == id || m.ReceiverID == id
}
