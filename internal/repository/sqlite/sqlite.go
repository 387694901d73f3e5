// Package sqlite implements the repositories on an embedded SQLite database
// through sqlx. Timestamps are stored as unix nanoseconds.
package sqlite

import (
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/domain"
)

type conversationRow struct {
	ID           uuid.UUID `db:"id"`
	ParticipantA uuid.UUID `db:"participant_a"`
	ParticipantB uuid.UUID `db:"participant_b"`
	CreatedAt    int64     `db:"created_at"`
}

func (r conversationRow) toDomain() domain.Conversation {
	return domain.Conversation{
		ID:           r.ID,
		ParticipantA: r.ParticipantA,
		ParticipantB: r.ParticipantB,
		CreatedAt:    fromNanos(r.CreatedAt),
	}
}

type messageRow struct {
	ID             uuid.UUID `db:"id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	SenderID       uuid.UUID `db:"sender_id"`
	Content        string    `db:"content"`
	SentAt         int64     `db:"sent_at"`
	IsRead         bool      `db:"is_read"`
}

func (r messageRow) toDomain() domain.Message {
	return domain.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Content:        r.Content,
		SentAt:         fromNanos(r.SentAt),
		IsRead:         r.IsRead,
	}
}

type userRow struct {
	ID          uuid.UUID `db:"id"`
	DisplayName string    `db:"display_name"`
	PictureURL  *string   `db:"picture_url"`
	Role        string    `db:"role"`
}

func (r userRow) toDomain() domain.UserProfile {
	return domain.UserProfile{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		PictureURL:  r.PictureURL,
		Role:        r.Role,
	}
}

func toNanos(t time.Time) int64 { return t.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
