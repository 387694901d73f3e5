package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vedran77/nestmate/internal/auth"
	"github.com/vedran77/nestmate/internal/logging"
)

type socketFixture struct {
	*hubFixture
	server *httptest.Server
	tokens *auth.Manager
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	f := newHubFixture(t)
	tokens := auth.NewManager("test-secret", "nestmate", time.Hour)
	server := httptest.NewServer(ServeWS(f.hub, tokens, HandlerOptions{}, logging.Discard()))
	t.Cleanup(server.Close)
	return &socketFixture{hubFixture: f, server: server, tokens: tokens}
}

func (f *socketFixture) dial(t *testing.T, ctx context.Context, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	if userID != uuid.Nil {
		tok, err := f.tokens.Issue(userID)
		require.NoError(t, err)
		url += "?access_token=" + tok
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, convID *uuid.UUID, payload string) {
	t.Helper()
	frame := `{"type":"` + typ + `"`
	if convID != nil {
		frame += `,"conversation_id":"` + convID.String() + `"`
	}
	if payload != "" {
		frame += `,"payload":` + payload
	}
	frame += `}`
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) Event {
	t.Helper()
	var evt Event
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	return evt
}

// roundTrip round-trips a ping so earlier commands on conn have been handled.
func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn) {
	t.Helper()
	send(t, ctx, conn, CommandPing, nil, "")
	require.Equal(t, EventTypePong, readEvent(t, ctx, conn).Type)
}

func TestServeWS_EndToEnd(t *testing.T) {
	req := require.New(t)
	f := newSocketFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ana := f.dial(t, ctx, f.u1)
	bo := f.dial(t, ctx, f.u2)
	req.Eventually(func() bool {
		return f.hub.Presence().IsOnline(f.u1) && f.hub.Presence().IsOnline(f.u2)
	}, 5*time.Second, 10*time.Millisecond)

	send(t, ctx, bo, CommandJoin, &f.conv.ID, "")
	roundTrip(t, ctx, bo)

	send(t, ctx, ana, CommandSend, &f.conv.ID, `{"content":"Is the room still available?"}`)

	// Bo is joined and online: full message first, then the notification
	evt := readEvent(t, ctx, bo)
	req.Equal(EventTypeReceiveMessage, evt.Type)
	req.Equal(f.conv.ID, *evt.ConversationID)
	p := decodePayload[ReceiveMessagePayload](t, evt)
	req.Equal("Is the room still available?", p.Content)
	req.Equal(f.u1, p.SenderID)
	req.Equal(EventTypeNotification, readEvent(t, ctx, bo).Type)

	send(t, ctx, bo, CommandRead, &f.conv.ID, "")
	evt = readEvent(t, ctx, bo)
	req.Equal(EventTypeMessagesRead, evt.Type)
	req.Equal(f.u2, decodePayload[MessagesReadPayload](t, evt).ReaderID)

	msgs := f.history(t)
	req.Len(msgs, 1)
	req.True(msgs[0].IsRead)

	// Closing the socket clears presence
	ana.Close(websocket.StatusNormalClosure, "bye")
	req.Eventually(func() bool { return !f.hub.Presence().IsOnline(f.u1) }, 5*time.Second, 10*time.Millisecond)
}

func TestServeWS_ProtocolErrors(t *testing.T) {
	req := require.New(t)
	f := newSocketFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := f.dial(t, ctx, f.u1)

	req.NoError(conn.Write(ctx, websocket.MessageText, []byte("not json")))
	evt := readEvent(t, ctx, conn)
	req.Equal(EventTypeError, evt.Type)
	req.Equal("INVALID_PAYLOAD", decodePayload[ErrorPayload](t, evt).Code)

	send(t, ctx, conn, "channel.subscribe", &f.conv.ID, "")
	evt = readEvent(t, ctx, conn)
	req.Equal("UNKNOWN_EVENT", decodePayload[ErrorPayload](t, evt).Code)

	// The connection survives protocol errors
	roundTrip(t, ctx, conn)
}

func TestServeWS_InvalidTokenIsAnonymous(t *testing.T) {
	req := require.New(t)
	f := newSocketFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?access_token=garbage"
	conn, _, err := websocket.Dial(ctx, url, nil)
	req.NoError(err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	send(t, ctx, conn, CommandSend, &f.conv.ID, `{"content":"who am I"}`)
	roundTrip(t, ctx, conn)
	req.Empty(f.history(t))
}

func TestClient_SlowConsumerIsClosed(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	c := &Client{
		id:     uuid.NewString(),
		hub:    f.hub,
		userID: f.u1,
		log:    logging.Discard(),
		send:   make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	req.True(c.Enqueue([]byte("1")))
	req.False(c.Enqueue([]byte("2")))
	req.False(c.Enqueue([]byte("3")), "closed clients refuse frames")
	req.ErrorIs(c.closeErr, errSlowConsumer)
}

func TestTokenFromRequest(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/ws?access_token=a&token=b", nil)
	req.Equal("a", tokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws?token=b", nil)
	req.Equal("b", tokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer c")
	req.Equal("c", tokenFromRequest(r))

	req.Equal([]string{"app.nestmate.example", "localhost:3000"},
		originHosts([]string{"https://app.nestmate.example", "http://localhost:3000", ""}))
}
