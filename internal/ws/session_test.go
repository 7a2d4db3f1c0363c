package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"travel-admin-panel/internal/adapters/backend"
	"travel-admin-panel/internal/audit"
	"travel-admin-panel/internal/models"
)

type countingChatAPI struct {
	mu        sync.Mutex
	listCalls int
}

func (c *countingChatAPI) lists() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

func (c *countingChatAPI) ListConversations(context.Context, int, int, bool) (*backend.ConversationList, error) {
	c.mu.Lock()
	c.listCalls++
	c.mu.Unlock()
	return &backend.ConversationList{
		Data:  []models.Conversation{{User: models.User{ID: 1, Phone: "+911234567890"}, UnreadCount: 2}},
		Total: 1,
	}, nil
}

func (c *countingChatAPI) GetThread(_ context.Context, userID int64, _, _ int) (*backend.Thread, error) {
	return &backend.Thread{
		User: models.User{ID: userID, Phone: "+911234567890"},
		Messages: []models.Message{
			{ID: 1, UserID: userID, Content: "namaste", SenderType: models.SenderUser},
		},
	}, nil
}

func (c *countingChatAPI) MarkMessagesRead(context.Context, int64) error { return nil }

func (c *countingChatAPI) SendMessage(_ context.Context, userID int64, content string, _ bool) (*backend.SendMessageResponse, error) {
	return &backend.SendMessageResponse{Message: models.Message{UserID: userID, Content: content}}, nil
}

func (c *countingChatAPI) ToggleBot(_ context.Context, userID int64) (*backend.ToggleBotResponse, error) {
	return &backend.ToggleBotResponse{UserID: userID}, nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []string
	users  []int64
}

func (a *recordingAuditor) Publish(eventType string, userID int64, _ map[string]interface{}) {
	a.mu.Lock()
	a.events = append(a.events, eventType)
	a.users = append(a.users, userID)
	a.mu.Unlock()
}

func (a *recordingAuditor) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	copy(out, a.events)
	return out
}

// waitForEvents polls until the auditor has recorded want events or the
// deadline passes.
func waitForEvents(t *testing.T, a *recordingAuditor, want int, deadline time.Duration) []string {
	t.Helper()
	stop := time.Now().Add(deadline)
	for {
		got := a.recorded()
		if len(got) >= want {
			return got
		}
		if time.Now().After(stop) {
			t.Fatalf("expected %d audit events, got %v", want, got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dialTestSession(t *testing.T, api *countingChatAPI, auditPub Auditor, interval time.Duration) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(NewHandler(api, auditPub, interval))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, srv
}

func readFrames(t *testing.T, conn *websocket.Conn, deadline time.Duration, match func(outboundFrame) bool) outboundFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(deadline))
	for {
		var frame outboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("did not receive expected frame: %v", err)
		}
		if match(frame) {
			return frame
		}
	}
}

func TestSelectIntentProducesThreadSnapshot(t *testing.T) {
	api := &countingChatAPI{}
	conn, _ := dialTestSession(t, api, nil, time.Hour)
	defer conn.Close()

	if err := conn.WriteJSON(intentFrame{Type: "select", UserID: 1}); err != nil {
		t.Fatalf("write intent: %v", err)
	}

	frame := readFrames(t, conn, 2*time.Second, func(f outboundFrame) bool {
		return f.Type == "snapshot" && f.Snapshot != nil &&
			f.Snapshot.SelectedUser != nil && f.Snapshot.SelectedUser.ID == 1 &&
			len(f.Snapshot.Thread) > 0
	})
	if frame.Snapshot.Thread[0].Content != "namaste" {
		t.Fatalf("unexpected thread: %+v", frame.Snapshot.Thread)
	}
}

func TestClosingSessionStopsPolling(t *testing.T) {
	api := &countingChatAPI{}
	conn, _ := dialTestSession(t, api, nil, 15*time.Millisecond)

	// Let a few poll cycles run, then hang up.
	time.Sleep(60 * time.Millisecond)
	_ = conn.Close()

	// Give teardown time to stop the timer, then verify fetch activity stays flat.
	time.Sleep(60 * time.Millisecond)
	after := api.lists()
	time.Sleep(60 * time.Millisecond)
	if final := api.lists(); final != after {
		t.Fatalf("polling continued after session close: %d -> %d", after, final)
	}
}

func TestUnknownIntentIsIgnored(t *testing.T) {
	api := &countingChatAPI{}
	conn, _ := dialTestSession(t, api, nil, time.Hour)
	defer conn.Close()

	if err := conn.WriteJSON(intentFrame{Type: "dance"}); err != nil {
		t.Fatalf("write intent: %v", err)
	}

	// The session must stay up and keep serving valid intents.
	if err := conn.WriteJSON(intentFrame{Type: "refresh"}); err != nil {
		t.Fatalf("write refresh: %v", err)
	}
	readFrames(t, conn, 2*time.Second, func(f outboundFrame) bool {
		return f.Type == "snapshot" && f.Snapshot != nil && len(f.Snapshot.Conversations) == 1
	})
}

func TestSendIntentPublishesAuditEvent(t *testing.T) {
	api := &countingChatAPI{}
	auditor := &recordingAuditor{}
	conn, _ := dialTestSession(t, api, auditor, time.Hour)
	defer conn.Close()

	if err := conn.WriteJSON(intentFrame{Type: "send", UserID: 7, Text: "flight is confirmed"}); err != nil {
		t.Fatalf("write intent: %v", err)
	}

	events := waitForEvents(t, auditor, 1, 2*time.Second)
	if events[0] != audit.EventMessageSent {
		t.Fatalf("expected %s event, got %v", audit.EventMessageSent, events)
	}
}

func TestBlankSendIsNotAudited(t *testing.T) {
	api := &countingChatAPI{}
	auditor := &recordingAuditor{}
	conn, _ := dialTestSession(t, api, auditor, time.Hour)
	defer conn.Close()

	if err := conn.WriteJSON(intentFrame{Type: "send", UserID: 7, Text: "   "}); err != nil {
		t.Fatalf("write blank send: %v", err)
	}
	if err := conn.WriteJSON(intentFrame{Type: "send", UserID: 7, Text: "itinerary attached"}); err != nil {
		t.Fatalf("write send: %v", err)
	}

	events := waitForEvents(t, auditor, 1, 2*time.Second)
	if len(events) != 1 || events[0] != audit.EventMessageSent {
		t.Fatalf("expected exactly one %s event, got %v", audit.EventMessageSent, events)
	}
}

func TestToggleIntentPublishesAuditEvent(t *testing.T) {
	api := &countingChatAPI{}
	auditor := &recordingAuditor{}
	conn, _ := dialTestSession(t, api, auditor, time.Hour)
	defer conn.Close()

	if err := conn.WriteJSON(intentFrame{Type: "toggle_bot", UserID: 3}); err != nil {
		t.Fatalf("write intent: %v", err)
	}

	events := waitForEvents(t, auditor, 1, 2*time.Second)
	if events[0] != audit.EventBotToggled {
		t.Fatalf("expected %s event, got %v", audit.EventBotToggled, events)
	}
	auditor.mu.Lock()
	userID := auditor.users[0]
	auditor.mu.Unlock()
	if userID != 3 {
		t.Fatalf("audited wrong user: %d", userID)
	}
}
