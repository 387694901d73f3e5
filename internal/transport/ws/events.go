package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types - Client → Server
const (
	CommandJoin        = "conversation.join"
	CommandLeave       = "conversation.leave"
	CommandSend        = "message.send"
	CommandRead        = "message.read"
	CommandTypingStart = "typing.start"
	CommandTypingStop  = "typing.stop"
	CommandPing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeReceiveMessage = "message.receive"
	EventTypeNotification   = "message.notification"
	EventTypeMessagesRead   = "messages.read"
	EventTypeUserTyping     = "typing.user"
	EventTypeStoppedTyping  = "typing.stopped"
	EventTypePong           = "pong"
	EventTypeError          = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server ---

// Command is a decoded client request.
type Command interface {
	commandType() string
}

type JoinConversation struct{ ConversationID uuid.UUID }
type LeaveConversation struct{ ConversationID uuid.UUID }
type SendMessage struct {
	ConversationID uuid.UUID
	Content        string
}
type MarkAsRead struct{ ConversationID uuid.UUID }
type StartTyping struct{ ConversationID uuid.UUID }
type StopTyping struct{ ConversationID uuid.UUID }
type Ping struct{}

func (JoinConversation) commandType() string  { return CommandJoin }
func (LeaveConversation) commandType() string { return CommandLeave }
func (SendMessage) commandType() string       { return CommandSend }
func (MarkAsRead) commandType() string        { return CommandRead }
func (StartTyping) commandType() string       { return CommandTypingStart }
func (StopTyping) commandType() string        { return CommandTypingStop }
func (Ping) commandType() string              { return CommandPing }

type MessageSendPayload struct {
	Content string `json:"content"`
}

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingConvID  = errors.New("conversation_id required")
)

// DecodeCommand parses one client frame.
func DecodeCommand(data []byte) (Command, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if evt.Type == CommandPing {
		return Ping{}, nil
	}

	if evt.ConversationID == nil || *evt.ConversationID == uuid.Nil {
		switch evt.Type {
		case CommandJoin, CommandLeave, CommandSend, CommandRead, CommandTypingStart, CommandTypingStop:
			return nil, fmt.Errorf("%w for %s", ErrMissingConvID, evt.Type)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, evt.Type)
	}
	convID := *evt.ConversationID

	switch evt.Type {
	case CommandJoin:
		return JoinConversation{ConversationID: convID}, nil
	case CommandLeave:
		return LeaveConversation{ConversationID: convID}, nil
	case CommandSend:
		var p MessageSendPayload
		if len(evt.Payload) > 0 {
			if err := json.Unmarshal(evt.Payload, &p); err != nil {
				return nil, fmt.Errorf("%w: invalid message.send payload", ErrMalformedFrame)
			}
		}
		return SendMessage{ConversationID: convID, Content: p.Content}, nil
	case CommandRead:
		return MarkAsRead{ConversationID: convID}, nil
	case CommandTypingStart:
		return StartTyping{ConversationID: convID}, nil
	case CommandTypingStop:
		return StopTyping{ConversationID: convID}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, evt.Type)
}

// --- Server → Client payloads ---

type ReceiveMessagePayload struct {
	ID                uuid.UUID `json:"id"`
	ConversationID    uuid.UUID `json:"conversation_id"`
	SenderID          uuid.UUID `json:"sender_id"`
	SenderDisplayName string    `json:"sender_display_name"`
	SenderRole        string    `json:"sender_role"`
	Content           string    `json:"content"`
	SentAt            time.Time `json:"sent_at"`
	IsRead            bool      `json:"is_read"`
}

type NotificationPayload struct {
	ConversationID    uuid.UUID `json:"conversation_id"`
	SenderDisplayName string    `json:"sender_display_name"`
}

type MessagesReadPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
}

type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, conversationID *uuid.UUID, payload any) (*Event, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}

func encodeEvent(eventType string, conversationID *uuid.UUID, payload any) ([]byte, error) {
	evt, err := NewEvent(eventType, conversationID, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(evt)
}
