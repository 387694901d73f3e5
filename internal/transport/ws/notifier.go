package ws

import (
	"github.com/google/uuid"
	"github.com/vedran77/nestmate/internal/service"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(out service.OutgoingMessage) {
	n.hub.DeliverMessage(out)
}

func (n *HubNotifier) NotifyMessagesRead(conversationID, readerID uuid.UUID) {
	n.hub.BroadcastRead(conversationID, readerID)
}
