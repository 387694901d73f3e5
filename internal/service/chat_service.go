package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/repository"
)

// ChatService serves the request/response endpoints. Every method takes the
// authenticated caller's id.
type ChatService struct {
	conversations *ConversationService
	messages      *MessageService
	userRepo      repository.UserRepository
	notifier      Notifier
}

func NewChatService(conversations *ConversationService, messages *MessageService, userRepo repository.UserRepository) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		userRepo:      userRepo,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ListConversations returns the caller's conversations newest first, with
// unread counts filled in.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	counts, err := s.messages.UnreadCountsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].UnreadCount = counts[convs[i].ID]
	}
	return convs, nil
}

// ListUnread returns only conversations with unread messages.
func (s *ChatService) ListUnread(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	convs, err := s.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(convs, func(c domain.ConversationSummary, _ int) bool {
		return c.UnreadCount > 0
	}), nil
}

// StartConversation finds or creates the conversation between the caller and
// otherUserID.
func (s *ChatService) StartConversation(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.ConversationSummary, error) {
	if userID == otherUserID {
		return nil, ErrCannotMessageSelf
	}

	// Validate other user exists
	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	conv, err := s.conversations.FindOrCreate(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}

	counts, err := s.messages.UnreadCountsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.ConversationSummary{
		Conversation: *conv,
		OtherUser:    *other,
		UnreadCount:  counts[conv.ID],
	}, nil
}

// ListMessages returns the full history when neither before nor limit is
// given, and a page otherwise.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, before *uuid.UUID, limit int) (*MessagePage, error) {
	if _, err := s.authorize(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if before == nil && limit == 0 {
		messages, err := s.messages.ListForConversation(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if messages == nil {
			messages = []domain.Message{}
		}
		return &MessagePage{Messages: messages}, nil
	}
	return s.messages.ListPage(ctx, conversationID, before, limit)
}

func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*domain.Message, error) {
	conv, err := s.authorize(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	var deliver func(OutgoingMessage)
	if s.notifier != nil {
		deliver = s.notifier.NotifyNewMessage
	}

	out, err := s.messages.AppendAndDeliver(ctx, conv, userID, content, deliver)
	if err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// MarkRead marks the other participant's messages as read and returns how
// many changed.
func (s *ChatService) MarkRead(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	if _, err := s.authorize(ctx, userID, conversationID); err != nil {
		return 0, err
	}

	n, err := s.messages.MarkAllReadForRecipient(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	if s.notifier != nil {
		s.notifier.NotifyMessagesRead(conversationID, userID)
	}
	return n, nil
}

func (s *ChatService) authorize(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !s.conversations.IsParticipant(conv, userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}
