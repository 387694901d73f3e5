package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/mocks"
	"github.com/vedran77/nestmate/internal/service"
)

func TestMessageService_Append_TrimsAndPersists(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	msg, err := s.messages.Append(context.Background(), s.conv.ID, s.ana, "  Hello  ")
	req.NoError(err)
	req.Equal("Hello", msg.Content)
	req.False(msg.IsRead)

	all, err := s.messages.ListForConversation(context.Background(), s.conv.ID)
	req.NoError(err)
	req.Len(all, 1)
	req.Equal(msg.ID, all[0].ID)
}

func TestMessageService_Append_SentAtSurvivesStorage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	svc := service.NewMessageService(repo, mocks.NewMockUserRepository(ctrl))

	// Postgres keeps microseconds; the returned message must match what is stored
	var stored domain.Message
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *domain.Message) error {
		stored = *m
		return nil
	})

	msg, err := svc.Append(context.Background(), uuid.New(), uuid.New(), "hi")
	req.NoError(err)
	req.Zero(msg.SentAt.Nanosecond() % 1000)
	req.Equal(stored.SentAt, msg.SentAt)
	req.Equal(time.UTC, msg.SentAt.Location())
}

func TestMessageService_Append_ValidationNeverPersists(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMessageRepository(ctrl)
	svc := service.NewMessageService(repo, mocks.NewMockUserRepository(ctrl))

	// No Create expectation: any call fails the test
	for _, content := range []string{"", "   \n\t", strings.Repeat("x", domain.MaxMessageLength+1)} {
		_, err := svc.Append(context.Background(), uuid.New(), uuid.New(), content)
		req.ErrorIs(err, service.ErrInvalidContent)

		var verr *service.ValidationError
		req.ErrorAs(err, &verr)
		req.Contains(verr.Fields, "content")
	}

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	_, err := svc.Append(context.Background(), uuid.New(), uuid.New(), strings.Repeat("x", domain.MaxMessageLength))
	req.NoError(err)
}

func TestMessageService_AppendAndDeliver_DeliveryOrderMatchesPersistence(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	var mu sync.Mutex
	var delivered []uuid.UUID
	deliver := func(out service.OutgoingMessage) {
		mu.Lock()
		delivered = append(delivered, out.Message.ID)
		mu.Unlock()
	}

	// Given both participants sending concurrently
	var g errgroup.Group
	for i := range 20 {
		sender := lo.Ternary(i%2 == 0, s.ana, s.bo)
		g.Go(func() error {
			_, err := s.messages.AppendAndDeliver(context.Background(), s.conv, sender, fmt.Sprintf("m%d", i), deliver)
			return err
		})
	}
	req.NoError(g.Wait())

	// Then the stored order equals the delivered order
	stored, err := s.messages.ListForConversation(context.Background(), s.conv.ID)
	req.NoError(err)
	req.Equal(delivered, lo.Map(stored, func(m domain.Message, _ int) uuid.UUID { return m.ID }))
}

func TestMessageService_AppendAndDeliver_CarriesSenderAndRecipient(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	var got service.OutgoingMessage
	out, err := s.messages.AppendAndDeliver(context.Background(), s.conv, s.ana, "Hi Bo", func(o service.OutgoingMessage) { got = o })
	req.NoError(err)
	req.Equal(*out, got)
	req.Equal("Ana", got.Sender.DisplayName)
	req.Equal("seeker", got.Sender.Role)
	req.Equal(s.bo, got.RecipientID)
}

func TestMessageService_AppendAndDeliver_InvalidContentSkipsDelivery(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	called := false
	_, err := s.messages.AppendAndDeliver(context.Background(), s.conv, s.ana, "  ", func(service.OutgoingMessage) { called = true })
	req.ErrorIs(err, service.ErrInvalidContent)
	req.False(called)
}

func TestMessageService_ListPage(t *testing.T) {
	req := require.New(t)
	s := newStack(t)

	for i := range 5 {
		_, err := s.messages.Append(context.Background(), s.conv.ID, s.ana, fmt.Sprintf("m%d", i))
		req.NoError(err)
	}

	page, err := s.messages.ListPage(context.Background(), s.conv.ID, nil, 3)
	req.NoError(err)
	req.True(page.HasMore)
	req.Equal([]string{"m2", "m3", "m4"}, lo.Map(page.Messages, func(m domain.Message, _ int) string { return m.Content }))

	rest, err := s.messages.ListPage(context.Background(), s.conv.ID, &page.Messages[0].ID, 3)
	req.NoError(err)
	req.False(rest.HasMore)
	req.Equal([]string{"m0", "m1"}, lo.Map(rest.Messages, func(m domain.Message, _ int) string { return m.Content }))
}

func TestMessageService_MarkAllReadAndUnreadCounts(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	ctx := context.Background()

	counts, err := s.messages.UnreadCountsForUser(ctx, s.bo)
	req.NoError(err)
	req.Zero(counts[s.conv.ID])

	_, err = s.messages.Append(ctx, s.conv.ID, s.ana, "one")
	req.NoError(err)
	_, err = s.messages.Append(ctx, s.conv.ID, s.ana, "two")
	req.NoError(err)

	counts, err = s.messages.UnreadCountsForUser(ctx, s.bo)
	req.NoError(err)
	req.EqualValues(2, counts[s.conv.ID])

	n, err := s.messages.MarkAllReadForRecipient(ctx, s.conv.ID, s.bo)
	req.NoError(err)
	req.EqualValues(2, n)

	n, err = s.messages.MarkAllReadForRecipient(ctx, s.conv.ID, s.bo)
	req.NoError(err)
	req.Zero(n)

	counts, err = s.messages.UnreadCountsForUser(ctx, s.bo)
	req.NoError(err)
	req.Zero(counts[s.conv.ID])
}
