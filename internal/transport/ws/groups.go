package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Groups tracks which connections are subscribed to which conversation.
// Membership is transport state only, never authorization.
type Groups struct {
	mu      sync.RWMutex
	members map[uuid.UUID]map[string]Connection
	byConn  map[string]map[uuid.UUID]struct{}
}

func NewGroups() *Groups {
	return &Groups{
		members: make(map[uuid.UUID]map[string]Connection),
		byConn:  make(map[string]map[uuid.UUID]struct{}),
	}
}

func (g *Groups) Join(conversationID uuid.UUID, c Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conns, ok := g.members[conversationID]
	if !ok {
		conns = make(map[string]Connection)
		g.members[conversationID] = conns
	}
	conns[c.ID()] = c

	convs, ok := g.byConn[c.ID()]
	if !ok {
		convs = make(map[uuid.UUID]struct{})
		g.byConn[c.ID()] = convs
	}
	convs[conversationID] = struct{}{}
}

func (g *Groups) Leave(conversationID uuid.UUID, c Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaveLocked(conversationID, c.ID())
}

// RemoveAll drops every membership of c.
func (g *Groups) RemoveAll(c Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for convID := range g.byConn[c.ID()] {
		g.leaveLocked(convID, c.ID())
	}
}

func (g *Groups) leaveLocked(conversationID uuid.UUID, connID string) {
	if conns, ok := g.members[conversationID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(g.members, conversationID)
		}
	}
	if convs, ok := g.byConn[connID]; ok {
		delete(convs, conversationID)
		if len(convs) == 0 {
			delete(g.byConn, connID)
		}
	}
}

// Members returns a snapshot of the group.
func (g *Groups) Members(conversationID uuid.UUID) []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	conns := g.members[conversationID]
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (g *Groups) IsMember(conversationID uuid.UUID, c Connection) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.members[conversationID][c.ID()]
	return ok
}
