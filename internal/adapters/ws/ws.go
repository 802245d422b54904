// Package ws exposes the live display feed over WebSocket.
//
// A connection starts with no subscriptions. Clients send join-event and
// leave-event commands to attach to broadcast channels; every message
// published on a joined channel is pushed to the socket as JSON, in
// publish order.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rxnight/tally/internal/adapters/broadcast"
	"github.com/rxnight/tally/pkg/logger"
)

// Connection timing constants.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxCommandSize = 512

	defaultSendBuffer = 16
)

// Client command actions.
const (
	actionJoinEvent  = "join-event"
	actionLeaveEvent = "leave-event"
)

// Subscriptions is the slice of the service the feed depends on.
type Subscriptions interface {
	Subscribe(ctx context.Context, eventID string, sub broadcast.Subscriber) error
	Unsubscribe(eventID, subID string)
}

// command is the inbound control frame.
type command struct {
	Action  string `json:"action"`
	EventID string `json:"eventId"`
}

// errorFrame is pushed when a command cannot be honored.
type errorFrame struct {
	Error string `json:"error"`
}

// Handler upgrades HTTP requests into display feed connections.
type Handler struct {
	subs       Subscriptions
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     logger.Logger
}

// NewHandler creates a WebSocket handler with configuration options.
func NewHandler(subs Subscriptions, opts ...Option) *Handler {
	h := &Handler{
		subs:       subs,
		sendBuffer: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Displays are served from the same origin in production;
			// judges' tablets connect through the venue proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}

	return h
}

// ServeHTTP upgrades the connection and runs the client pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		out:     make(chan broadcast.Message, h.sendBuffer),
		done:    make(chan struct{}),
		joined:  make(map[string]struct{}),
		handler: h,
	}

	h.logger.Debug(r.Context(), "display connected", logger.String("clientID", c.id))

	go c.writePump()
	c.readPump(r.Context())
}

// client is one display feed connection. It implements
// broadcast.Subscriber so the hub can push to it directly.
type client struct {
	id   string
	conn *websocket.Conn

	out  chan broadcast.Message
	done chan struct{}

	mu     sync.Mutex
	closed bool
	joined map[string]struct{}

	handler *Handler
}

func (c *client) ID() string { return c.id }

// Send queues a message for the connection. It fails when the outbound
// buffer stays full past the context deadline, which marks this client
// as a slow consumer to the hub.
func (c *client) Send(ctx context.Context, msg broadcast.Message) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump consumes join/leave commands until the connection drops.
func (c *client) readPump(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(maxCommandSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.logger.Warn(ctx, "display connection dropped",
					logger.String("clientID", c.id),
					logger.Error(err),
				)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.pushError("malformed command")
			continue
		}
		c.handleCommand(ctx, cmd)
	}
}

func (c *client) handleCommand(ctx context.Context, cmd command) {
	switch cmd.Action {
	case actionJoinEvent:
		if cmd.EventID == "" {
			c.pushError("eventId is required")
			return
		}
		if err := c.handler.subs.Subscribe(ctx, cmd.EventID, c); err != nil {
			c.handler.logger.Debug(ctx, "join rejected",
				logger.String("clientID", c.id),
				logger.String("eventID", cmd.EventID),
				logger.Error(err),
			)
			c.pushError("unknown event: " + cmd.EventID)
			return
		}
		c.mu.Lock()
		c.joined[cmd.EventID] = struct{}{}
		c.mu.Unlock()

	case actionLeaveEvent:
		c.handler.subs.Unsubscribe(cmd.EventID, c.id)
		c.mu.Lock()
		delete(c.joined, cmd.EventID)
		c.mu.Unlock()

	default:
		c.pushError("unknown action: " + cmd.Action)
	}
}

// pushError queues an error frame, dropping it if the client is too far
// behind to care.
func (c *client) pushError(msg string) {
	data, err := json.Marshal(errorFrame{Error: msg})
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}

// writePump serializes all writes to the socket and keeps it alive with
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			c.mu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteJSON(msg)
			c.mu.Unlock()
			if err != nil {
				return
			}

		case <-ticker.C:
			c.mu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// close tears down the connection and detaches it from every joined
// channel. Safe to call from both pumps.
func (c *client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	joined := make([]string, 0, len(c.joined))
	for eventID := range c.joined {
		joined = append(joined, eventID)
	}
	c.mu.Unlock()

	for _, eventID := range joined {
		c.handler.subs.Unsubscribe(eventID, c.id)
	}
	_ = c.conn.Close()
}
