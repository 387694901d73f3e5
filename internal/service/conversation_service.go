package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/repository"
)

// ConversationService is the directory of 1:1 conversations.
type ConversationService struct {
	convRepo repository.ConversationRepository
	now      func() time.Time
}

func NewConversationService(convRepo repository.ConversationRepository) *ConversationService {
	return &ConversationService{
		convRepo: convRepo,
		now:      time.Now,
	}
}

// FindOrCreate returns the conversation for the unordered pair {a, b},
// creating it on first contact. Concurrent callers for the same pair get the
// same row; the storage unique constraint arbitrates.
func (s *ConversationService) FindOrCreate(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	if domain.NewPair(a, b).IsSelf() {
		return nil, ErrCannotMessageSelf
	}

	conv, err := s.convRepo.GetOrCreate(ctx, domain.NewConversation(a, b, s.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("find or create conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *ConversationService) IsParticipant(conv *domain.Conversation, userID uuid.UUID) bool {
	return conv != nil && conv.IsParticipant(userID)
}

// ListForUser returns the user's conversations newest first.
func (s *ConversationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	convs, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.ConversationSummary{}
	}
	return convs, nil
}
