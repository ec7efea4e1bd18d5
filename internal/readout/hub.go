// Package readout broadcasts live body state to websocket clients.
package readout

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/surfroll/internal/logger"
	"github.com/Faultbox/surfroll/internal/simulation"
)

const (
	sendBuffer   = 256
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// Message kinds sent to clients.
const (
	KindFrame = "frame"
	KindEvent = "event"
)

// Message is the JSON envelope of every websocket message.
type Message struct {
	Kind  string            `json:"kind"`
	Frame *simulation.Frame `json:"frame,omitempty"`
	Event *simulation.Event `json:"event,omitempty"`
}

// Stats summarises hub activity.
type Stats struct {
	Clients    int    `json:"clients"`
	Broadcasts uint64 `json:"broadcasts"`
	Dropped    uint64 `json:"dropped"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub fans messages out to connected websocket clients. Each client has a buffered send
// queue; a message that does not fit is dropped for that client only. Hub implements
// simulation.Sink.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	broadcasts atomic.Uint64
	dropped    atomic.Uint64
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     logger.Named("readout"),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), id: r.RemoteAddr}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("readout client connected", zap.String("client", c.id))

	go h.readPump(c)
	go h.writePump(c)
}

// readPump discards client messages and unregisters the client when the connection drops.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remove unregisters c and closes its queue, once.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Info("readout client disconnected", zap.String("client", c.id))
	}
	h.mu.Unlock()
}

// Publish queues msg for every connected client.
func (h *Hub) Publish(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcasts.Add(1)
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// WriteFrame publishes f to all clients.
func (h *Hub) WriteFrame(f simulation.Frame) error {
	return h.publishJSON(Message{Kind: KindFrame, Frame: &f})
}

// WriteEvent publishes e to all clients.
func (h *Hub) WriteEvent(e simulation.Event) error {
	return h.publishJSON(Message{Kind: KindEvent, Event: &e})
}

func (h *Hub) publishJSON(m Message) error {
	if h.ClientCount() == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	h.Publish(data)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stats returns a snapshot of hub activity.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:    h.ClientCount(),
		Broadcasts: h.broadcasts.Load(),
		Dropped:    h.dropped.Load(),
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
