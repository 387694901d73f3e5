//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_repository.go -package=mocks
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/domain"
)

// UserRepository reads public profiles owned by the profile service.
// GetByID returns nil, nil when the user does not exist.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error)
}

type ConversationRepository interface {
	// GetOrCreate inserts conv unless a row for the same canonical pair
	// exists, and returns the stored row in either case. conv must already be
	// in canonical order.
	GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error)
	// GetByID returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// ListByUser returns the user's conversations newest first, each joined
	// with the other participant's profile.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByConversation returns every message ordered by sent_at, then
	// insertion order.
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	// ListPage returns at most limit messages older than before (or the
	// newest ones when before is nil), in chronological order.
	ListPage(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error)
	// MarkReadForRecipient flips is_read on unread messages not sent by
	// recipientID and returns the number of rows changed.
	MarkReadForRecipient(ctx context.Context, conversationID, recipientID uuid.UUID) (int64, error)
	// UnreadCounts returns, per conversation of userID, the number of unread
	// messages sent by the other participant. Conversations with no unread
	// messages are omitted.
	UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int64, error)
}
