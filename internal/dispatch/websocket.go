package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/achimid/web-page-notify-api/internal/model"
)

// Hub tracks live socket subscribers and pushes notifications to all of
// them. It is both an http.Handler (the upgrade endpoint) and a
// Dispatcher (the push side). Pushing to zero subscribers is a no-op.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// writeMu serializes pushes: gorilla connections allow only one
	// concurrent writer.
	writeMu sync.Mutex
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: map[*websocket.Conn]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Debug("websocket subscriber connected", slog.Int("subscribers", n))

	// subscribers only listen; read until the peer goes away so pings and
	// close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) Deliver(ctx context.Context, ch model.Channel, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Debug("websocket subscriber dropped", slog.Any("err", err))
			h.drop(c)
		}
	}
	return nil
}
