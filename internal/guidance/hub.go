// internal/guidance/hub.go
package guidance

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 1024
	sendChannelSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The overlay page is served from this same process but kiosk shells
	// often load it from file:// or another port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub is a Renderer that broadcasts frames to every connected overlay page.
// A newly connected page immediately receives the latest frame.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *Frame
	closed  bool
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Frame
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger.Named("overlay_hub"),
		clients: make(map[*wsClient]struct{}),
	}
}

// Render queues f for every client, dropping it for clients whose buffer is
// full.
func (h *Hub) Render(_ context.Context, f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &f
	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			h.logger.Warn("Overlay client is not keeping up; dropping frame.", zap.Uint64("seq", f.Seq))
		}
	}
	return nil
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and pumps frames until the page disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade overlay connection.", zap.Error(err))
		return
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan Frame, sendChannelSize)}
	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.logger.Info("Overlay page connected.", zap.String("remote_addr", r.RemoteAddr))

	go c.writePump()
	c.readPump()
	h.logger.Info("Overlay page disconnected.", zap.String("remote_addr", r.RemoteAddr))
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- *h.last
	}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every page and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump only services control frames; pages never send data.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Overlay connection closed unexpectedly.", zap.Error(err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			payload, err := json.Marshal(f)
			if err != nil {
				c.hub.logger.Error("Failed to encode frame.", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
