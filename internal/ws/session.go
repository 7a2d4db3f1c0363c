package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"travel-admin-panel/internal/audit"
	"travel-admin-panel/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 16 * 1024
)

// intentFrame is what the rendering layer sends over the socket. Type selects
// the operation; the other fields are operation-specific.
type intentFrame struct {
	Type        string `json:"type"` // select, send, toggle_bot, refresh, set_channel
	UserID      int64  `json:"user_id,omitempty"`
	Text        string `json:"text,omitempty"`
	ViaWhatsApp *bool  `json:"via_whatsapp,omitempty"`
}

// outboundFrame is what the session pushes to the rendering layer: either a
// full state snapshot or a transient notice.
type outboundFrame struct {
	Type     string                 `json:"type"` // snapshot, notice
	Snapshot *services.ChatSnapshot `json:"snapshot,omitempty"`
	Level    services.NoticeLevel   `json:"level,omitempty"`
	Text     string                 `json:"text,omitempty"`
}

// Session binds one websocket connection to one chat controller. The
// controller polls for as long as the connection lives; teardown stops the
// timer deterministically.
type Session struct {
	conn  *websocket.Conn
	ctrl  *services.ChatController
	audit Auditor

	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newSession(conn *websocket.Conn, auditPub Auditor) *Session {
	return &Session{
		conn:   conn,
		audit:  auditPub,
		send:   make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

// Notify implements services.Notifier by forwarding notices to the browser.
func (s *Session) Notify(level services.NoticeLevel, text string) {
	s.enqueue(outboundFrame{Type: "notice", Level: level, Text: text})
}

func (s *Session) pushSnapshot(snap services.ChatSnapshot) {
	s.enqueue(outboundFrame{Type: "snapshot", Snapshot: &snap})
}

func (s *Session) enqueue(frame outboundFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("frameType", frame.Type).Msg("Failed to marshal outbound frame")
		return
	}
	select {
	case <-s.closed:
	case s.send <- payload:
	default:
		log.Warn().Str("frameType", frame.Type).Msg("Outbound buffer full, dropping frame")
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case <-s.closed:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump processes intent frames until the connection drops. Each intent
// runs on its own goroutine so a slow fetch never blocks the next intent; the
// controller's commit guards resolve whatever races that produces.
func (s *Session) readPump() {
	defer s.teardown()
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame intentFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Chat session closed unexpectedly")
			}
			return
		}
		go s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame intentFrame) {
	ctx := context.Background()
	var err error
	switch frame.Type {
	case "select":
		err = s.ctrl.SelectConversation(ctx, frame.UserID)
	case "send":
		via := s.ctrl.SendViaWhatsApp()
		if frame.ViaWhatsApp != nil {
			via = *frame.ViaWhatsApp
		}
		err = s.ctrl.SendMessage(ctx, frame.UserID, frame.Text, via)
		if err == nil && s.audit != nil {
			s.audit.Publish(audit.EventMessageSent, frame.UserID, map[string]interface{}{"via_whatsapp": via})
		}
		// Local rejections are silent no-ops for the rendering layer.
		if errors.Is(err, services.ErrEmptyMessage) || errors.Is(err, services.ErrSendInProgress) {
			err = nil
		}
	case "toggle_bot":
		err = s.ctrl.ToggleBotPause(ctx, frame.UserID)
		if err == nil && s.audit != nil {
			s.audit.Publish(audit.EventBotToggled, frame.UserID, nil)
		}
	case "refresh":
		err = s.ctrl.RefreshConversations(ctx)
	case "set_channel":
		if frame.ViaWhatsApp != nil {
			s.ctrl.SetSendViaWhatsApp(*frame.ViaWhatsApp)
		}
	default:
		log.Warn().Str("frameType", frame.Type).Msg("Unknown chat intent")
	}
	if err != nil {
		log.Debug().Err(err).Str("frameType", frame.Type).Msg("Chat intent failed")
	}
}

func (s *Session) teardown() {
	s.once.Do(func() {
		s.ctrl.StopPolling()
		close(s.closed)
	})
}
