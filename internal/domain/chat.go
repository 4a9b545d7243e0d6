package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry of the append-only room chat log.
// Ordering is arrival order at the local signaling channel.
type ChatMessage struct {
	ID       string    `json:"id"`
	Sender   string    `json:"sender"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"time"`
	IsSystem bool      `json:"isSystem"`
}

// NewSystemMessage synthesizes a local join/leave notice. System
// messages are never sent over the wire.
func NewSystemMessage(text string) ChatMessage {
	return ChatMessage{
		ID:       uuid.NewString(),
		Sender:   "System",
		Text:     text,
		SentAt:   time.Now(),
		IsSystem: true,
	}
}
