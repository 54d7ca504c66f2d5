// Package queueboard pushes token changes to waiting-room displays over
// websockets.
package queueboard

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

const sendBuffer = 64

// Message is what displays receive. It never carries patient data.
type Message struct {
	Type       appointments.EventType `json:"type"`
	Date       string                 `json:"date"`
	Token      int                    `json:"token"`
	Department string                 `json:"department"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans token events out to every connected display. Slow clients are
// dropped instead of blocking the booking path.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	logger     *logging.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
		clients:    make(map[*client]struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("queueboard client registered")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("queueboard client too slow, dropped")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements appointments.EventPublisher. It never blocks.
func (h *Hub) Publish(evt appointments.Event) {
	payload, err := json.Marshal(Message{
		Type:       evt.Type,
		Date:       evt.Date.String(),
		Token:      evt.Token,
		Department: evt.Department,
	})
	if err != nil {
		h.logger.Error("queueboard encode failed", "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("queueboard broadcast buffer full, event dropped", "type", evt.Type)
	}
}

// Clients reports the number of connected displays.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
