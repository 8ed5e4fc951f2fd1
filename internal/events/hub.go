package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chemequip/backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Message types sent over the dataset socket.
const (
	MsgTypeConnected = "connected"
	MsgTypePing      = "ping"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const defaultWriteWait = 5 * time.Second

// WSMessage is the envelope for control frames. Dataset events are sent as
// bare models.DatasetEvent objects; their Type distinguishes them.
type WSMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Hub keeps the open dataset sockets and broadcasts events to them.
type Hub struct {
	upgrader  websocket.Upgrader
	writeWait time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// CORS middleware already decides which origins reach us.
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		writeWait: defaultWriteWait,
		logger:    logger.With("component", "ws"),
		clients:   make(map[*client]struct{}),
	}
}

// Clients returns the number of connected sockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends ev to every connected socket. Sockets that fail to accept
// the write are dropped; that never counts as a publish failure.
func (h *Hub) Publish(_ context.Context, ev models.DatasetEvent) error {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(ev, h.writeWait); err != nil {
			h.logger.Warn("dropping websocket client", "error", err)
			h.remove(c)
		}
	}
	return nil
}

// HandleWebSocket upgrades the request and keeps the socket registered
// until the peer goes away.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	cl := &client{conn: conn}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	defer h.remove(cl)

	h.logger.Debug("client connected", "remote", c.RealIP())
	if err := cl.write(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()}, h.writeWait); err != nil {
		return nil
	}

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("connection error", "error", err)
			}
			break
		}

		reply := WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}
		if msg.Type != MsgTypePing {
			reply = WSMessage{Type: MsgTypeError, Message: "Unknown message type: " + msg.Type, Timestamp: reply.Timestamp}
		}
		if err := cl.write(reply, h.writeWait); err != nil {
			break
		}
	}

	h.logger.Debug("client disconnected", "remote", c.RealIP())
	return nil
}

// Close disconnects every socket.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}
