package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/repository"
	"github.com/vedran77/nestmate/pkg/validator"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	lockStripes     = 64
)

// MessageService is the durable message store.
type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	now         func() time.Time

	// Held across persist and deliver so that, per conversation, delivery
	// order equals persistence order.
	locks [lockStripes]sync.Mutex
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		now:         time.Now,
	}
}

type MessagePage struct {
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// Append validates and persists a message. The caller must already have
// checked that senderID participates in the conversation.
func (s *MessageService) Append(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*domain.Message, error) {
	content, verrs := validator.NormalizeMessage(content)
	if verrs.HasErrors() {
		return nil, &ValidationError{Fields: verrs}
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         s.now().UTC().Truncate(time.Microsecond),
		IsRead:         false,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	return msg, nil
}

// AppendAndDeliver appends a message from senderID to conv and hands it to
// deliver before any later message in the same conversation is appended.
// deliver must not block.
func (s *MessageService) AppendAndDeliver(
	ctx context.Context,
	conv *domain.Conversation,
	senderID uuid.UUID,
	content string,
	deliver func(OutgoingMessage),
) (*OutgoingMessage, error) {
	sender, err := s.senderProfile(ctx, senderID)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(conv.ID)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.Append(ctx, conv.ID, senderID, content)
	if err != nil {
		return nil, err
	}

	out := &OutgoingMessage{
		Message:     *msg,
		Sender:      sender,
		RecipientID: conv.OtherParticipant(senderID),
	}
	if deliver != nil {
		deliver(*out)
	}
	return out, nil
}

// ListForConversation returns the whole history in send order.
func (s *MessageService) ListForConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	return s.messageRepo.ListByConversation(ctx, conversationID)
}

// ListPage returns up to limit messages older than before, in send order.
func (s *MessageService) ListPage(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) (*MessagePage, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	messages, err := s.messageRepo.ListPage(ctx, conversationID, before, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessagePage{
		Messages: messages,
		HasMore:  hasMore,
	}, nil
}

// MarkAllReadForRecipient marks every unread message not sent by recipientID
// as read and returns how many changed. Zero is not an error.
func (s *MessageService) MarkAllReadForRecipient(ctx context.Context, conversationID, recipientID uuid.UUID) (int64, error) {
	return s.messageRepo.MarkReadForRecipient(ctx, conversationID, recipientID)
}

// UnreadCountsForUser is computed from storage on every call.
func (s *MessageService) UnreadCountsForUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	counts, err := s.messageRepo.UnreadCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = map[uuid.UUID]int64{}
	}
	return counts, nil
}

func (s *MessageService) senderProfile(ctx context.Context, senderID uuid.UUID) (domain.UserProfile, error) {
	u, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if u == nil {
		return domain.UserProfile{ID: senderID}, nil
	}
	return *u, nil
}

func (s *MessageService) lockFor(conversationID uuid.UUID) *sync.Mutex {
	return &s.locks[binary.BigEndian.Uint64(conversationID[8:])%lockStripes]
}
