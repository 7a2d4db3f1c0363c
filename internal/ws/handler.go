package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"travel-admin-panel/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The panel is served same-origin; tighten this if that changes.
		return true
	},
}

// Auditor records admin actions taken through the chat view.
// *audit.Publisher satisfies it.
type Auditor interface {
	Publish(eventType string, userID int64, detail map[string]interface{})
}

// Handler upgrades chat-view connections and gives each one its own
// controller and polling loop.
type Handler struct {
	api          services.ChatAPI
	audit        Auditor
	pollInterval time.Duration
}

func NewHandler(api services.ChatAPI, auditPub Auditor, pollInterval time.Duration) *Handler {
	return &Handler{api: api, audit: auditPub, pollInterval: pollInterval}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	session := newSession(conn, h.audit)
	ctrl, err := services.NewChatController(h.api, session, session.pushSnapshot)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create chat controller")
		_ = conn.Close()
		return
	}
	session.ctrl = ctrl

	log.Info().Str("remoteAddr", r.RemoteAddr).Msg("Chat session opened")

	go session.writePump()

	// Prime the view before the first poll tick lands.
	go func() {
		_ = ctrl.RefreshConversations(context.Background())
	}()
	ctrl.StartPolling(h.pollInterval)

	session.readPump()
	log.Info().Str("remoteAddr", r.RemoteAddr).Msg("Chat session closed")
}
