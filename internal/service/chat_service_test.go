package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/mocks"
	"github.com/vedran77/nestmate/internal/service"
)

func TestChatService_StartConversation_IsIdempotentAcrossOrder(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	first, err := s.chat.StartConversation(context.Background(), s.cy, s.ana)
	req.NoError(err)
	req.Equal("Ana", first.OtherUser.DisplayName)

	second, err := s.chat.StartConversation(context.Background(), s.ana, s.cy)
	req.NoError(err)
	req.Equal(first.ID, second.ID)
	req.Equal("Cy", second.OtherUser.DisplayName)
}

func TestChatService_StartConversation_Errors(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	convs := mocks.NewMockConversationRepository(ctrl)
	msgs := mocks.NewMockMessageRepository(ctrl)
	chat := service.NewChatService(service.NewConversationService(convs), service.NewMessageService(msgs, users), users)

	me := uuid.New()
	_, err := chat.StartConversation(context.Background(), me, me)
	req.ErrorIs(err, service.ErrCannotMessageSelf)

	ghost := uuid.New()
	users.EXPECT().GetByID(gomock.Any(), ghost).Return(nil, nil)
	_, err = chat.StartConversation(context.Background(), me, ghost)
	req.ErrorIs(err, service.ErrUserNotFound)
}

func TestChatService_Authorization(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	ctx := context.Background()

	_, err := s.chat.ListMessages(ctx, s.ana, uuid.New(), nil, 0)
	req.ErrorIs(err, service.ErrConversationNotFound)

	_, err = s.chat.ListMessages(ctx, s.cy, s.conv.ID, nil, 0)
	req.ErrorIs(err, service.ErrNotParticipant)

	_, err = s.chat.SendMessage(ctx, s.cy, s.conv.ID, "intruder")
	req.ErrorIs(err, service.ErrNotParticipant)

	_, err = s.chat.MarkRead(ctx, s.cy, s.conv.ID)
	req.ErrorIs(err, service.ErrNotParticipant)

	msgs, err := s.chat.ListMessages(ctx, s.ana, s.conv.ID, nil, 0)
	req.NoError(err)
	req.Empty(msgs.Messages)
}

func TestChatService_SendAndReadNotify(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	ctx := context.Background()
	n := &recordingNotifier{}
	s.chat.SetNotifier(n)

	msg, err := s.chat.SendMessage(ctx, s.ana, s.conv.ID, " Hello ")
	req.NoError(err)
	req.Equal("Hello", msg.Content)
	req.Len(n.sent, 1)
	req.Equal(msg.ID, n.sent[0].Message.ID)
	req.Equal(s.bo, n.sent[0].RecipientID)

	_, err = s.chat.SendMessage(ctx, s.ana, s.conv.ID, "")
	req.ErrorIs(err, service.ErrInvalidContent)
	req.Len(n.sent, 1)

	updated, err := s.chat.MarkRead(ctx, s.bo, s.conv.ID)
	req.NoError(err)
	req.EqualValues(1, updated)
	req.Equal([]uuid.UUID{s.bo}, n.reads)

	// Zero updates still signal
	updated, err = s.chat.MarkRead(ctx, s.bo, s.conv.ID)
	req.NoError(err)
	req.Zero(updated)
	req.Len(n.reads, 2)
}

func TestChatService_ListConversationsAndUnread(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	ctx := context.Background()

	other, err := s.chat.StartConversation(ctx, s.bo, s.cy)
	req.NoError(err)
	_, err = s.chat.SendMessage(ctx, s.ana, s.conv.ID, "room still free?")
	req.NoError(err)
	_, err = s.chat.SendMessage(ctx, s.bo, other.ID, "hi Cy")
	req.NoError(err)

	convs, err := s.chat.ListConversations(ctx, s.bo)
	req.NoError(err)
	req.Len(convs, 2)
	byID := map[uuid.UUID]domain.ConversationSummary{}
	for _, c := range convs {
		byID[c.ID] = c
	}
	req.EqualValues(1, byID[s.conv.ID].UnreadCount)
	req.Zero(byID[other.ID].UnreadCount)

	unread, err := s.chat.ListUnread(ctx, s.bo)
	req.NoError(err)
	req.Len(unread, 1)
	req.Equal(s.conv.ID, unread[0].ID)
	req.Equal("Ana", unread[0].OtherUser.DisplayName)
}

func TestChatService_ListMessages_Paged(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c"} {
		_, err := s.chat.SendMessage(ctx, s.ana, s.conv.ID, c)
		req.NoError(err)
	}

	page, err := s.chat.ListMessages(ctx, s.bo, s.conv.ID, nil, 2)
	req.NoError(err)
	req.True(page.HasMore)
	req.Len(page.Messages, 2)
	req.Equal("c", page.Messages[1].Content)

	all, err := s.chat.ListMessages(ctx, s.bo, s.conv.ID, nil, 0)
	req.NoError(err)
	req.False(all.HasMore)
	req.Len(all.Messages, 3)
}
