package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/repository/sqlite"
	"github.com/vedran77/nestmate/internal/service"
	"github.com/vedran77/nestmate/internal/testutil"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stack struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	chat          *service.ChatService
	ana, bo, cy   uuid.UUID
	conv          *domain.Conversation
}

// newStack wires the services over a fresh SQLite database with three users
// and one conversation between ana and bo.
func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewSQLite(t)
	users := sqlite.NewUserRepo(db)

	s := &stack{
		conversations: service.NewConversationService(sqlite.NewConversationRepo(db)),
		messages:      service.NewMessageService(sqlite.NewMessageRepo(db), users),
		ana:           testutil.SeedUser(t, db, "Ana", "seeker"),
		bo:            testutil.SeedUser(t, db, "Bo", "landlord"),
		cy:            testutil.SeedUser(t, db, "Cy", "seeker"),
	}
	s.chat = service.NewChatService(s.conversations, s.messages, users)

	conv, err := s.conversations.FindOrCreate(context.Background(), s.ana, s.bo)
	require.NoError(t, err)
	s.conv = conv
	return s
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []service.OutgoingMessage
	reads []uuid.UUID
}

func (n *recordingNotifier) NotifyNewMessage(out service.OutgoingMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, out)
}

func (n *recordingNotifier) NotifyMessagesRead(conversationID, readerID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reads = append(n.reads, readerID)
}
