package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Connection is one live socket as the hub sees it.
type Connection interface {
	// ID is unique across all instances.
	ID() string
	// UserID is uuid.Nil when the socket carried no usable credential.
	UserID() uuid.UUID
	// Enqueue queues data for writing without blocking. It reports false when
	// the connection is closed or too far behind.
	Enqueue(data []byte) bool
}

// Presence maps users to their live connections on this instance.
// Register and Unregister are linearizable per registry.
type Presence struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[string]Connection
}

func NewPresence() *Presence {
	return &Presence{users: make(map[uuid.UUID]map[string]Connection)}
}

// Register adds c to userID's set. It reports whether c was newly added.
func (p *Presence) Register(userID uuid.UUID, c Connection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[userID]
	if !ok {
		conns = make(map[string]Connection)
		p.users[userID] = conns
	}
	if _, dup := conns[c.ID()]; dup {
		return false
	}
	conns[c.ID()] = c
	return true
}

// Unregister removes c and drops the user entry once it is empty. It
// reports whether c was present.
func (p *Presence) Unregister(userID uuid.UUID, c Connection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[userID]
	if !ok {
		return false
	}
	if _, ok := conns[c.ID()]; !ok {
		return false
	}
	delete(conns, c.ID())
	if len(conns) == 0 {
		delete(p.users, userID)
	}
	return true
}

// ConnectionsFor returns a snapshot; empty when the user is offline.
func (p *Presence) ConnectionsFor(userID uuid.UUID) []Connection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := p.users[userID]
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (p *Presence) IsOnline(userID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[userID]
	return ok
}
