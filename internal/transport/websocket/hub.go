package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type MessageType string

const MessageTypeFlightChanged MessageType = "flight_changed"

// Message is pushed to every client watching a flight.
type Message struct {
	Type      MessageType `json:"type"`
	FlightID  int64       `json:"flight_id"`
	Timestamp int64       `json:"timestamp"`
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	flightID int64
}

// Hub tracks websocket clients per flight and fans flight-changed messages
// out to them. Slow clients whose buffer is full are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[int64]map[*client]struct{}),
	}
}

// Notify broadcasts a flight-changed message. It never blocks on clients.
func (h *Hub) Notify(ctx context.Context, flightID int64) error {
	data, err := json.Marshal(Message{
		Type:      MessageTypeFlightChanged,
		FlightID:  flightID,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[flightID] {
		select {
		case c.send <- data:
		default:
			h.removeLocked(c)
		}
	}

	return nil
}

// Count returns the number of clients watching flightID.
func (h *Hub) Count(flightID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[flightID])
}

// Serve upgrades the request and streams messages for flightID until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, flightID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		flightID: flightID,
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.flightID] == nil {
		h.clients[c.flightID] = make(map[*client]struct{})
	}
	h.clients[c.flightID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	clients, ok := h.clients[c.flightID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}

	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.flightID)
	}
}

// readPump only watches for close and pong frames; clients send nothing.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
