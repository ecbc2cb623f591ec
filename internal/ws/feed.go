// Package ws serves the live submission feed over WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/careerlift/backend/internal/domain"
	"github.com/careerlift/backend/internal/events"
	"github.com/careerlift/backend/internal/handler"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

// Authorizer resolves a token to an access decision.
type Authorizer interface {
	Authorize(ctx context.Context, token string, roles ...string) (domain.Access, error)
}

// FeedHandler relays the caller's own event channel to a WebSocket.
type FeedHandler struct {
	auth Authorizer
	bus  events.Subscriber
	log  *slog.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(auth Authorizer, bus events.Subscriber, log *slog.Logger) *FeedHandler {
	return &FeedHandler{auth: auth, bus: bus, log: log}
}

// Handle upgrades to WebSocket and streams submission and assignment events.
// URL: /ws/submissions?token=JWT_TOKEN
func (h *FeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	access, err := h.auth.Authorize(r.Context(), r.URL.Query().Get("token"),
		domain.RoleJobSeeker, domain.RoleRecruiter)
	if err != nil {
		handler.Error(w, err)
		return
	}
	switch access.Outcome {
	case domain.AccessGranted:
	case domain.AccessForbidden:
		handler.JSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	default:
		handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	caller := access.Identity

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	feed, err := h.bus.Subscribe(ctx, caller.ID)
	if err != nil {
		h.log.Error("event subscribe failed", "user_id", caller.ID, "error", err)
		handler.JSON(w, http.StatusServiceUnavailable, map[string]string{"error": "live feed unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.log.Info("live feed connected", "user_id", caller.ID, "role", caller.Role)

	// The client never sends data; reading only services control frames
	// and notices the close.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-feed:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
