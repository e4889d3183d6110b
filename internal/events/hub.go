package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxClientsPerSession = 20
	clientBuffer         = 16
	writeTimeout         = 5 * time.Second
)

var ErrTooManyClients = errors.New("too many clients for session")

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) run() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	c.conn.Close()
}

func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

// Hub pushes session updates to WebSocket clients watching that session.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]map[*websocket.Conn]*client
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[uuid.UUID]map[*websocket.Conn]*client)}
}

// Register starts delivering updates of sessionID to conn.
func (h *Hub) Register(sessionID uuid.UUID, conn *websocket.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[sessionID]
	if clients == nil {
		clients = make(map[*websocket.Conn]*client)
		h.clients[sessionID] = clients
	}
	if len(clients) >= maxClientsPerSession {
		return fmt.Errorf("%w: limit is %d", ErrTooManyClients, maxClientsPerSession)
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	clients[conn] = c
	go c.run()
	h.logger.Debug("websocket client registered", "session_id", sessionID, "clients", len(clients))
	return nil
}

// Unregister stops delivery to conn and closes it.
func (h *Hub) Unregister(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sessionID, conn)
}

func (h *Hub) remove(sessionID uuid.UUID, conn *websocket.Conn) {
	clients := h.clients[sessionID]
	c, ok := clients[conn]
	if !ok {
		return
	}
	c.stop()
	delete(clients, conn)
	if len(clients) == 0 {
		delete(h.clients, sessionID)
	}
}

// CloseSession disconnects every client of sessionID.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients[sessionID] {
		h.remove(sessionID, conn)
	}
}

func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

// Publish queues u for every client of its session. Clients whose buffer is
// full are dropped.
func (h *Hub) Publish(_ context.Context, u Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, c := range h.clients[u.SessionID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", "session_id", u.SessionID)
			h.remove(u.SessionID, conn)
		}
	}
	return nil
}
