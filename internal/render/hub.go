package render

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/misterem/RandomWalker/internal/geometry"
)

const writeTimeout = 3 * time.Second

// Hub broadcasts every drawn segment as a JSON text frame to connected
// websocket clients. Clients that fail a write are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     *slog.Logger
}

// NewHub returns an empty hub. A nil logger discards.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Hub{clients: make(map[*websocket.Conn]struct{}), log: log}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Clients reports how many connections are attached.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast writes message to every client.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			h.log.Debug("dropping websocket client", "error", err)
			_ = conn.Close(websocket.StatusNormalClosure, "")
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) DrawSegment(s geometry.Segment, color string) {
	msg, err := json.Marshal(Drawn{Segment: s, Color: color})
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

// ServeHTTP upgrades the request and keeps the client attached until it
// disconnects. Inbound messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	h.add(conn)
	h.log.Info("websocket client attached", "remote", r.RemoteAddr)
	defer func() {
		h.remove(conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
}
