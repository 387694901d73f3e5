package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
	sendBufSize    = 256
)

var errSlowConsumer = errors.New("send buffer full")

// Client represents a single WebSocket connection.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	log    *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewClient wraps conn. userID may be uuid.Nil for an anonymous socket.
// sendBuffer <= 0 uses the default.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, sendBuffer int, log *slog.Logger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = sendBufSize
	}
	id := uuid.NewString()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		userID: userID,
		log:    log.With("conn_id", id, "user_id", userID),
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string        { return c.id }
func (c *Client) UserID() uuid.UUID { return c.userID }

// Enqueue never blocks. A full buffer closes the client.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.shutdown(errSlowConsumer)
		return false
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.done)
	})
}

// Run registers the client, pumps frames until either side closes, and
// unregisters it. Cleanup happens however the connection ends.
func (c *Client) Run(ctx context.Context) error {
	c.hub.OnConnect(c)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := c.readPump(ctx)
		c.shutdown(err)
		return err
	})
	g.Go(func() error {
		return c.writePump(ctx)
	})
	err := g.Wait()

	c.hub.OnDisconnect(c, err)
	if errors.Is(err, errSlowConsumer) {
		c.conn.Close(websocket.StatusPolicyViolation, "slow consumer")
	} else {
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
	return err
}

// readPump reads commands from the WebSocket and routes them to the Hub.
func (c *Client) readPump(ctx context.Context) error {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.Debug("ws: client closed", "status", websocket.CloseStatus(err))
			} else if ctx.Err() == nil {
				c.log.Debug("ws: read error", "error", err)
			}
			return err
		}

		cmd, err := DecodeCommand(data)
		if err != nil {
			c.sendError(protocolErrorCode(err), err.Error())
			continue
		}

		if err := c.hub.Dispatch(ctx, c, cmd); err != nil {
			c.log.Error("ws: command failed", "command", cmd.commandType(), "error", err)
		}
	}
}

// writePump writes queued frames and keepalive pings.
func (c *Client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(wctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return err
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}

		case <-c.done:
			if c.closeErr != nil {
				return c.closeErr
			}
			return context.Canceled

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) sendError(code, message string) {
	data, err := encodeEvent(EventTypeError, nil, ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	c.Enqueue(data)
}

func protocolErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownCommand):
		return "UNKNOWN_EVENT"
	case errors.Is(err, ErrMissingConvID):
		return "MISSING_CONVERSATION_ID"
	}
	return "INVALID_PAYLOAD"
}
