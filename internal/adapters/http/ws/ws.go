// Package ws pushes committed store changes to browsers over websockets.
package ws

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	"github.com/okian/kam/pkg/logger"
	"github.com/okian/kam/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	feedBuffer     = 64
)

// Feed is the source of change notifications.
type Feed interface {
	Subscribe(buffer int) (<-chan repository.Change, func())
}

// Verifier turns a bearer token into a principal.
type Verifier interface {
	Verify(raw string) (access.Principal, error)
}

// Message is what clients receive for every change.
type Message struct {
	Type       string           `json:"type"`
	Collection model.Collection `json:"collection"`
	Action     model.Action     `json:"action"`
	Key        string           `json:"key,omitempty"`
	Version    uint64           `json:"version"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Handler upgrades authenticated requests and streams changes to them.
type Handler struct {
	feed     Feed
	verifier Verifier
	upgrader websocket.Upgrader
	clients  atomic.Int64
	logger   logger.Logger
}

// NewHandler returns a handler accepting browsers from allowedOrigins. A
// "*" entry accepts any origin.
func NewHandler(feed Feed, verifier Verifier, allowedOrigins []string, l logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	h := &Handler{feed: feed, verifier: verifier, logger: l}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int64 { return h.clients.Load() }

// ServeHTTP handles GET /api/ws. Browsers cannot set headers on a websocket
// handshake, so the token may also come in the "token" query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = bearer(r)
	}
	p, err := h.verifier.Verify(raw)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	changes, cancel := h.feed.Subscribe(feedBuffer)

	metrics.UpdateWebsocketClients(int(h.clients.Add(1)))
	h.logger.Debug(r.Context(), "websocket client connected",
		logger.String("user", p.UserID), logger.String("remote", r.RemoteAddr))

	ctx, stop := context.WithCancel(context.WithoutCancel(r.Context()))
	go h.readPump(conn, stop)
	h.writePump(ctx, conn, p, changes)

	cancel()
	_ = conn.Close()
	metrics.UpdateWebsocketClients(int(h.clients.Add(-1)))
	h.logger.Debug(r.Context(), "websocket client disconnected", logger.String("user", p.UserID))
}

// readPump discards client messages and keeps the read deadline moving on
// pongs. It cancels the writer once the connection fails.
func (h *Handler) readPump(conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, p access.Principal, changes <-chan repository.Change) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			msg, visible := messageFor(p, c)
			if !visible {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			metrics.RecordWebsocketMessage()
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// messageFor shapes c for p. Employees never hear about accounts or users,
// and get no item keys since those may name users outside their scope.
func messageFor(p access.Principal, c repository.Change) (Message, bool) {
	msg := Message{
		Type:       "change",
		Collection: c.Collection,
		Action:     c.Action,
		Key:        c.Key,
		Version:    c.Version,
		Timestamp:  c.Timestamp,
	}
	if p.IsAdmin() {
		return msg, true
	}
	if c.Collection == model.CollectionAccounts || c.Collection == model.CollectionUsers {
		return Message{}, false
	}
	msg.Key = ""
	return msg, true
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
