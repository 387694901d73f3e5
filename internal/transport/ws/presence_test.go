package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPresence_RegisterUnregister(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	user := uuid.New()
	c1, c2 := newFakeConn(user), newFakeConn(user)

	req.Empty(p.ConnectionsFor(user))
	req.True(p.Register(user, c1))
	req.False(p.Register(user, c1), "register is idempotent per handle")
	req.True(p.Register(user, c2))
	req.Len(p.ConnectionsFor(user), 2)

	req.True(p.Unregister(user, c1))
	req.True(p.IsOnline(user))
	req.True(p.Unregister(user, c2))
	req.False(p.IsOnline(user))
	req.Empty(p.ConnectionsFor(user))

	// Already absent
	req.False(p.Unregister(user, c2))
}

func TestPresence_ConcurrentSameUser(t *testing.T) {
	req := require.New(t)
	p := NewPresence()
	user := uuid.New()

	conns := make([]*fakeConn, 200)
	for i := range conns {
		conns[i] = newFakeConn(user)
	}

	var g errgroup.Group
	for _, c := range conns {
		g.Go(func() error {
			p.Register(user, c)
			return nil
		})
	}
	req.NoError(g.Wait())
	req.Len(p.ConnectionsFor(user), len(conns))

	// Half close while the other half re-registers
	for i, c := range conns {
		g.Go(func() error {
			if i%2 == 0 {
				p.Unregister(user, c)
			} else {
				p.Register(user, c)
			}
			return nil
		})
	}
	req.NoError(g.Wait())
	req.Len(p.ConnectionsFor(user), len(conns)/2)
}

func TestGroups_JoinLeaveRemoveAll(t *testing.T) {
	req := require.New(t)
	g := NewGroups()
	c1, c2 := newFakeConn(uuid.New()), newFakeConn(uuid.New())
	convA, convB := uuid.New(), uuid.New()

	g.Join(convA, c1)
	g.Join(convA, c1)
	g.Join(convB, c1)
	g.Join(convA, c2)
	req.Len(g.Members(convA), 2)
	req.True(g.IsMember(convB, c1))

	g.Leave(convA, c2)
	req.False(g.IsMember(convA, c2))
	// Leaving a group never joined is fine
	g.Leave(convB, c2)

	g.RemoveAll(c1)
	req.Empty(g.Members(convA))
	req.Empty(g.Members(convB))
}
