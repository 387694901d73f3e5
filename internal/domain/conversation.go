package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a 1:1 channel between two users. ParticipantA/ParticipantB
// are always stored in canonical order (see Pair).
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	ParticipantA uuid.UUID `json:"participant_a"`
	ParticipantB uuid.UUID `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewConversation(a, b uuid.UUID, now time.Time) *Conversation {
	p := NewPair(a, b)
	return &Conversation{
		ID:           uuid.New(),
		ParticipantA: p.Low,
		ParticipantB: p.High,
		CreatedAt:    now,
	}
}

// IsParticipant reports whether userID is one of the two participants.
func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return c.Pair().Contains(userID)
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	return c.Pair().Other(userID)
}

func (c *Conversation) Pair() Pair {
	return Pair{Low: c.ParticipantA, High: c.ParticipantB}
}

// ConversationSummary is a conversation as seen by one of its participants.
type ConversationSummary struct {
	Conversation
	// Joined fields for frontend
	OtherUser   UserProfile `json:"other_user"`
	UnreadCount int64       `json:"unread_count"`
}
