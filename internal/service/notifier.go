package service

import (
	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/domain"
)

// OutgoingMessage is a persisted message plus what live subscribers need to
// render it.
type OutgoingMessage struct {
	Message     domain.Message
	Sender      domain.UserProfile
	RecipientID uuid.UUID
}

// Notifier broadcasts real-time events to connected clients.
type Notifier interface {
	NotifyNewMessage(out OutgoingMessage)
	NotifyMessagesRead(conversationID, readerID uuid.UUID)
}
