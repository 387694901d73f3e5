package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     string
	userID uuid.UUID

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn(userID uuid.UUID) *fakeConn {
	return &fakeConn{id: uuid.NewString(), userID: userID}
}

func (c *fakeConn) ID() string        { return c.id }
func (c *fakeConn) UserID() uuid.UUID { return c.userID }

func (c *fakeConn) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.frames))
	for _, f := range c.frames {
		var evt Event
		require.NoError(t, json.Unmarshal(f, &evt))
		out = append(out, evt)
	}
	return out
}

func (c *fakeConn) eventsOfType(t *testing.T, typ string) []Event {
	t.Helper()
	var out []Event
	for _, e := range c.events(t) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func decodePayload[T any](t *testing.T, evt Event) T {
	t.Helper()
	var p T
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	return p
}
