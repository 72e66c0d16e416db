// Package notify pushes notification records to connected browsers over
// websockets. Delivery is best effort; the database row is the durable
// copy.
package notify

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mangavault/pkg/models"
)

type connection struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks websocket connections per user and fans notifications out to
// every open session of the target user.
type Hub struct {
	logger *zap.Logger

	mu    sync.Mutex
	conns map[string]map[*connection]bool // userID -> sessions

	register   chan *connection
	unregister chan *connection
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		conns:      make(map[string]map[*connection]bool),
		register:   make(chan *connection),
		unregister: make(chan *connection),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.conns[c.userID] == nil {
				h.conns[c.userID] = make(map[*connection]bool)
			}
			h.conns[c.userID][c] = true
			h.mu.Unlock()
			h.logger.Debug("notify: client connected", zap.String("user_id", c.userID))

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()
			h.logger.Debug("notify: client disconnected", zap.String("user_id", c.userID))

		case <-h.done:
			h.mu.Lock()
			for _, sessions := range h.conns {
				for c := range sessions {
					h.drop(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every connection and ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Push implements notification.Pusher. A session whose send buffer is full
// is evicted rather than blocking the caller.
func (h *Hub) Push(userID string, n models.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		h.logger.Warn("notify: marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("notify: send buffer full, evicting session",
				zap.String("user_id", userID))
			h.drop(c)
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(c *connection) {
	sessions := h.conns[c.userID]
	if sessions == nil || !sessions[c] {
		return
	}
	delete(sessions, c)
	if len(sessions) == 0 {
		delete(h.conns, c.userID)
	}
	close(c.send)
	c.conn.Close()
}
