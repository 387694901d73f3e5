package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vedran77/nestmate/internal/domain"
	"github.com/vedran77/nestmate/internal/service"
	"github.com/vedran77/nestmate/internal/telemetry"
)

// publishTimeout bounds a Redis publish. Publishing runs under the
// conversation's lock stripe, so a slow publish also delays every other
// conversation sharing that stripe for at most this long.
const publishTimeout = time.Second

// ConversationDirectory resolves conversations for participancy checks.
type ConversationDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
}

// MessageStore persists messages and read state.
type MessageStore interface {
	AppendAndDeliver(ctx context.Context, conv *domain.Conversation, senderID uuid.UUID, content string, deliver func(service.OutgoingMessage)) (*service.OutgoingMessage, error)
	MarkAllReadForRecipient(ctx context.Context, conversationID, recipientID uuid.UUID) (int64, error)
}

// Publisher carries deliveries to every hub instance, this one included.
type Publisher interface {
	Publish(ctx context.Context, d Delivery) error
}

// Delivery addresses one encoded frame to a conversation group or to all of
// a user's connections.
type Delivery struct {
	Conversation uuid.UUID `json:"conversation,omitempty"`
	User         uuid.UUID `json:"user,omitempty"`
	// Exclude skips one connection, by id.
	Exclude      string    `json:"exclude,omitempty"`
	Data         []byte    `json:"data"`
}

// Hub routes socket commands to the stores and fans events out to
// connections. Business-rule violations (unknown conversation, non
// participant, empty content) are silent no-ops; only infrastructure errors
// are returned.
type Hub struct {
	presence      *Presence
	groups        *Groups
	conversations ConversationDirectory
	messages      MessageStore
	publisher     Publisher

	log     *slog.Logger
	tracer  trace.Tracer
	metrics *hubMetrics
}

func NewHub(conversations ConversationDirectory, messages MessageStore, log *slog.Logger) *Hub {
	metrics, err := newHubMetrics(otel.Meter(telemetry.ServiceName))
	if err != nil {
		log.Warn("hub metrics disabled", "error", err)
		metrics = noopHubMetrics()
	}

	return &Hub{
		presence:      NewPresence(),
		groups:        NewGroups(),
		conversations: conversations,
		messages:      messages,
		log:           log,
		tracer:        otel.Tracer(telemetry.ServiceName),
		metrics:       metrics,
	}
}

// SetPublisher routes deliveries through p instead of delivering locally.
// p must eventually hand every delivery back to DeliverLocal.
func (h *Hub) SetPublisher(p Publisher) {
	h.publisher = p
}

func (h *Hub) Presence() *Presence { return h.presence }
func (h *Hub) Groups() *Groups     { return h.groups }

// OnConnect registers c in presence. Anonymous connections stay
// unregistered; every identity-bound command on them is a no-op.
func (h *Hub) OnConnect(c Connection) {
	if c.UserID() == uuid.Nil {
		h.log.Debug("ws: anonymous connection", "conn_id", c.ID())
		return
	}
	if h.presence.Register(c.UserID(), c) {
		h.metrics.connections.Add(context.Background(), 1)
	}
	h.log.Info("ws: connected", "user_id", c.UserID(), "conn_id", c.ID())
}

// OnDisconnect drops c from presence and every group. Safe to call more than
// once or without a prior OnConnect.
func (h *Hub) OnDisconnect(c Connection, reason error) {
	h.groups.RemoveAll(c)
	if c.UserID() == uuid.Nil {
		return
	}
	if h.presence.Unregister(c.UserID(), c) {
		h.metrics.connections.Add(context.Background(), -1)
		h.log.Info("ws: disconnected", "user_id", c.UserID(), "conn_id", c.ID(), "reason", reason)
	}
}

// Dispatch runs one decoded command for c.
func (h *Hub) Dispatch(ctx context.Context, c Connection, cmd Command) error {
	ctx, span := h.tracer.Start(ctx, "hub."+cmd.commandType(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			telemetry.UserIDKey.String(c.UserID().String()),
			telemetry.ConnectionIDKey.String(c.ID()),
		),
	)
	defer span.End()

	var err error
	switch cmd := cmd.(type) {
	case JoinConversation:
		span.SetAttributes(telemetry.ConversationIDKey.String(cmd.ConversationID.String()))
		err = h.JoinConversation(ctx, c, cmd.ConversationID)
	case LeaveConversation:
		span.SetAttributes(telemetry.ConversationIDKey.String(cmd.ConversationID.String()))
		h.LeaveConversation(c, cmd.ConversationID)
	case SendMessage:
		span.SetAttributes(telemetry.ConversationIDKey.String(cmd.ConversationID.String()))
		err = h.SendMessage(ctx, c, cmd.ConversationID, cmd.Content)
	case MarkAsRead:
		span.SetAttributes(telemetry.ConversationIDKey.String(cmd.ConversationID.String()))
		err = h.MarkAsRead(ctx, c, cmd.ConversationID)
	case StartTyping:
		h.StartTyping(ctx, c, cmd.ConversationID)
	case StopTyping:
		h.StopTyping(ctx, c, cmd.ConversationID)
	case Ping:
		h.sendTo(c, EventTypePong, nil, nil)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// JoinConversation subscribes c to the conversation if its user participates.
func (h *Hub) JoinConversation(ctx context.Context, c Connection, conversationID uuid.UUID) error {
	conv, err := h.authorize(ctx, c, conversationID)
	if err != nil || conv == nil {
		return err
	}
	h.groups.Join(conversationID, c)
	return nil
}

// LeaveConversation needs no checks.
func (h *Hub) LeaveConversation(c Connection, conversationID uuid.UUID) {
	h.groups.Leave(conversationID, c)
}

// SendMessage persists content and delivers it to the conversation group,
// plus a notification to every connection of the other participant.
func (h *Hub) SendMessage(ctx context.Context, c Connection, conversationID uuid.UUID, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	conv, err := h.authorize(ctx, c, conversationID)
	if err != nil || conv == nil {
		return err
	}

	_, err = h.messages.AppendAndDeliver(ctx, conv, c.UserID(), content, h.DeliverMessage)
	if errors.Is(err, service.ErrInvalidContent) {
		return nil
	}
	return err
}

// MarkAsRead marks the other side's messages read and tells the group,
// even when nothing changed. Unlike typing, it requires c's user to be a
// participant; otherwise it is a no-op.
func (h *Hub) MarkAsRead(ctx context.Context, c Connection, conversationID uuid.UUID) error {
	conv, err := h.authorize(ctx, c, conversationID)
	if err != nil || conv == nil {
		return err
	}

	n, err := h.messages.MarkAllReadForRecipient(ctx, conversationID, c.UserID())
	if err != nil {
		return err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("nestmate.marked_read", n))

	h.BroadcastRead(conversationID, c.UserID())
	return nil
}

// StartTyping tells the rest of the group; the sender's connection is
// skipped.
func (h *Hub) StartTyping(ctx context.Context, c Connection, conversationID uuid.UUID) {
	h.typing(ctx, c, conversationID, EventTypeUserTyping)
}

func (h *Hub) StopTyping(ctx context.Context, c Connection, conversationID uuid.UUID) {
	h.typing(ctx, c, conversationID, EventTypeStoppedTyping)
}

func (h *Hub) typing(ctx context.Context, c Connection, conversationID uuid.UUID, eventType string) {
	if c.UserID() == uuid.Nil {
		return
	}
	data, err := encodeEvent(eventType, &conversationID, TypingPayload{
		ConversationID: conversationID,
		UserID:         c.UserID(),
	})
	if err != nil {
		h.log.Error("ws hub: marshal error", "error", err)
		return
	}
	h.publish(ctx, Delivery{Conversation: conversationID, Exclude: c.ID(), Data: data})
}

// DeliverMessage fans a persisted message out. It runs inside the message
// store's per-conversation critical section.
func (h *Hub) DeliverMessage(out service.OutgoingMessage) {
	msg := out.Message
	convID := msg.ConversationID

	data, err := encodeEvent(EventTypeReceiveMessage, &convID, ReceiveMessagePayload{
		ID:                msg.ID,
		ConversationID:    convID,
		SenderID:          msg.SenderID,
		SenderDisplayName: out.Sender.DisplayName,
		SenderRole:        out.Sender.Role,
		Content:           msg.Content,
		SentAt:            msg.SentAt,
		IsRead:            msg.IsRead,
	})
	if err != nil {
		h.log.Error("ws hub: marshal error", "error", err)
		return
	}
	h.publish(context.Background(), Delivery{Conversation: convID, Data: data})

	if out.RecipientID == uuid.Nil {
		return
	}
	note, err := encodeEvent(EventTypeNotification, &convID, NotificationPayload{
		ConversationID:    convID,
		SenderDisplayName: out.Sender.DisplayName,
	})
	if err != nil {
		h.log.Error("ws hub: marshal error", "error", err)
		return
	}
	h.publish(context.Background(), Delivery{User: out.RecipientID, Data: note})
}

func (h *Hub) BroadcastRead(conversationID, readerID uuid.UUID) {
	data, err := encodeEvent(EventTypeMessagesRead, &conversationID, MessagesReadPayload{
		ConversationID: conversationID,
		ReaderID:       readerID,
	})
	if err != nil {
		h.log.Error("ws hub: marshal error", "error", err)
		return
	}
	h.publish(context.Background(), Delivery{Conversation: conversationID, Data: data})
}

// DeliverLocal enqueues d on the matching connections of this instance.
// Each enqueue is independent; a refused frame only affects its connection.
func (h *Hub) DeliverLocal(d Delivery) {
	var targets []Connection
	switch {
	case d.Conversation != uuid.Nil:
		targets = h.groups.Members(d.Conversation)
	case d.User != uuid.Nil:
		targets = h.presence.ConnectionsFor(d.User)
	}

	ctx := context.Background()
	for _, c := range targets {
		if d.Exclude != "" && c.ID() == d.Exclude {
			continue
		}
		if c.Enqueue(d.Data) {
			h.metrics.delivered.Add(ctx, 1)
			continue
		}
		h.metrics.dropped.Add(ctx, 1)
		h.log.Warn("ws hub: frame dropped", "conn_id", c.ID(), "user_id", c.UserID())
	}
}

func (h *Hub) publish(ctx context.Context, d Delivery) {
	if h.publisher == nil {
		h.DeliverLocal(d)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := h.publisher.Publish(ctx, d); err != nil {
		h.log.Error("ws hub: publish failed, delivering locally", "error", err)
		h.DeliverLocal(d)
	}
}

// sendTo writes an event to c alone.
func (h *Hub) sendTo(c Connection, eventType string, conversationID *uuid.UUID, payload any) {
	data, err := encodeEvent(eventType, conversationID, payload)
	if err != nil {
		h.log.Error("ws hub: marshal error", "error", err)
		return
	}
	if !c.Enqueue(data) {
		h.metrics.dropped.Add(context.Background(), 1)
	}
}

// authorize returns the conversation when c's user participates in it, and
// nil with no error when the command should be silently ignored.
func (h *Hub) authorize(ctx context.Context, c Connection, conversationID uuid.UUID) (*domain.Conversation, error) {
	if c.UserID() == uuid.Nil {
		return nil, nil
	}
	conv, err := h.conversations.GetByID(ctx, conversationID)
	if errors.Is(err, service.ErrConversationNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(c.UserID()) {
		return nil, nil
	}
	return conv, nil
}
