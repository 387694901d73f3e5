package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength is the maximum message length in characters (runes).
const MaxMessageLength = 1000

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
	IsRead         bool      `json:"is_read"`
}
