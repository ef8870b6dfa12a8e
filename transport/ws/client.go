// Package ws terminates the persistent bidirectional channel and feeds
// decoded frames into the router. One goroutine reads, one writes; the
// rest of the relay only ever talks to the buffered send channel.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/domain/event"
	"chat-relay/router"
	"chat-relay/runtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// pushFrame is an unsolicited server push: no requestId, no statusCode.
type pushFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Client is one live connection. It implements router.Connection for
// correlated responses and contract.EventSink for room fan-out.
type Client struct {
	id        string
	log       *slog.Logger
	conn      *websocket.Conn
	router    *router.Router
	lifecycle *runtime.Lifecycle

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func NewClient(id string, log *slog.Logger, conn *websocket.Conn,
	r *router.Router, lifecycle *runtime.Lifecycle, bufferSize int) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		id:        id,
		log:       log,
		conn:      conn,
		router:    r,
		lifecycle: lifecycle,
		send:      make(chan []byte, bufferSize),
		closed:    make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues one outbound frame. Sending to a closed connection is a
// silent no-op; a full buffer drops the frame rather than stall the
// event fan-out for everyone else.
func (c *Client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return nil
	case c.send <- data:
		return nil
	default:
		c.log.Warn("Send buffer full, dropping frame", "conn", c.id)
		return nil
	}
}

// Consume translates a domain event into its wire push.
func (c *Client) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		return c.Send(pushFrame{Event: "message", Payload: map[string]any{
			"message": evt.Message,
		}})
	case event.UserJoined:
		return c.Send(pushFrame{Event: "user-joined", Payload: map[string]any{
			"username": evt.Username,
		}})
	case event.UserLeft:
		return c.Send(pushFrame{Event: "user-left", Payload: map[string]any{
			"username": evt.Username,
		}})
	case event.HistoryReplay:
		return c.Send(pushFrame{Event: "history", Payload: map[string]any{
			"threadId": evt.Room.String(),
			"messages": evt.Messages,
		}})
	default:
		c.log.Debug("No wire mapping for event", "conn", c.id, "event", e)
		return nil
	}
}

// ReadPump consumes inbound frames until the connection dies, dispatching
// each one synchronously so a connection's envelopes keep receipt order.
// It owns the disconnect: session teardown and the paired user-left
// broadcasts happen exactly once, here.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Close()
		c.lifecycle.Disconnect(ctx, c.id)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected close", "conn", c.id, "error", err)
			}
			return
		}
		c.router.Dispatch(ctx, c, raw)
	}
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Write failed", "conn", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close marks the connection gone. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}
