package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"travel-admin-panel/internal/adapters/backend"
	"travel-admin-panel/internal/models"
)

// ChatAPI is the slice of the backend client the chat controller depends on.
// Narrowed to an interface so tests can drive it with a stub.
type ChatAPI interface {
	ListConversations(ctx context.Context, page, perPage int, unreadOnly bool) (*backend.ConversationList, error)
	GetThread(ctx context.Context, userID int64, page, perPage int) (*backend.Thread, error)
	MarkMessagesRead(ctx context.Context, userID int64) error
	SendMessage(ctx context.Context, userID int64, content string, sendWhatsApp bool) (*backend.SendMessageResponse, error)
	ToggleBot(ctx context.Context, userID int64) (*backend.ToggleBotResponse, error)
}

// NoticeLevel classifies transient notifications shown to the admin.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notifier receives transient, non-fatal notifications. Every fetch failure
// ends up here; none of them crash the view.
type Notifier interface {
	Notify(level NoticeLevel, text string)
}

// ChatSnapshot is a read-only copy of the controller state handed to the
// rendering layer. The rendering layer never mutates controller state
// directly; it communicates intent through the controller's operations.
type ChatSnapshot struct {
	Conversations   []models.Conversation `json:"conversations"`
	SelectedUserID  int64                 `json:"selected_user_id,omitempty"`
	SelectedUser    *models.User          `json:"selected_user,omitempty"`
	Thread          []models.Message      `json:"thread"`
	Sending         bool                  `json:"sending"`
	SendViaWhatsApp bool                  `json:"send_via_whatsapp"`
	Loading         bool                  `json:"loading"`
}

var (
	// ErrEmptyMessage is returned when a send is rejected locally because the
	// text is blank. No network call is made.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrSendInProgress is returned when a send is rejected because a
	// previous send has not settled yet.
	ErrSendInProgress = errors.New("a send is already in progress")
)

const (
	// The panel shows the conversation list unpaginated; request one large
	// page at the backend's cap.
	conversationsPerPage = 50
	threadPerPage        = 200
)

// ChatController owns the client-side state of the chat view: the
// conversation list, the active thread and its user, and the send/loading
// flags. Every fetch replaces its target state wholesale, so stale responses
// must be discarded rather than merged; the guards live in commit paths here
// and nowhere else.
type ChatController struct {
	api      ChatAPI
	notify   Notifier
	onChange func(ChatSnapshot)

	mu              sync.Mutex
	conversations   []models.Conversation
	selectedUserID  int64
	selectedUser    *models.User
	thread          []models.Message
	sending         bool
	sendViaWhatsApp bool
	loading         bool
	// loadGen increments on every SelectConversation. A thread response may
	// commit only if both the generation and the selected user id still match
	// the values the fetch was issued for.
	loadGen uint64

	pollMu   sync.Mutex
	pollStop chan struct{}
	pollDone chan struct{}
}

// NewChatController creates a controller. notify and onChange may be nil.
func NewChatController(api ChatAPI, notify Notifier, onChange func(ChatSnapshot)) (*ChatController, error) {
	if api == nil {
		return nil, fmt.Errorf("chat API client cannot be nil")
	}
	return &ChatController{
		api:             api,
		notify:          notify,
		onChange:        onChange,
		sendViaWhatsApp: true,
	}, nil
}

// Snapshot returns a copy of the current state.
func (c *ChatController) Snapshot() ChatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *ChatController) snapshotLocked() ChatSnapshot {
	snap := ChatSnapshot{
		Conversations:   make([]models.Conversation, len(c.conversations)),
		SelectedUserID:  c.selectedUserID,
		Thread:          make([]models.Message, len(c.thread)),
		Sending:         c.sending,
		SendViaWhatsApp: c.sendViaWhatsApp,
		Loading:         c.loading,
	}
	copy(snap.Conversations, c.conversations)
	copy(snap.Thread, c.thread)
	if c.selectedUser != nil {
		u := *c.selectedUser
		snap.SelectedUser = &u
	}
	return snap
}

func (c *ChatController) emitChange() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

func (c *ChatController) notifyf(level NoticeLevel, format string, args ...interface{}) {
	if c.notify == nil {
		return
	}
	c.notify.Notify(level, fmt.Sprintf(format, args...))
}

// SetSendViaWhatsApp stores the admin's channel preference for future sends.
func (c *ChatController) SetSendViaWhatsApp(enabled bool) {
	c.mu.Lock()
	c.sendViaWhatsApp = enabled
	c.mu.Unlock()
	c.emitChange()
}

// SendViaWhatsApp reports the current channel preference.
func (c *ChatController) SendViaWhatsApp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendViaWhatsApp
}

// RefreshConversations fetches the conversation list and replaces it
// wholesale. On failure the previous list is kept; stale-but-available beats
// blanking the UI.
func (c *ChatController) RefreshConversations(ctx context.Context) error {
	list, err := c.api.ListConversations(ctx, 1, conversationsPerPage, false)
	if err != nil {
		log.Warn().Err(err).Msg("Conversation list refresh failed, keeping previous state")
		c.notifyf(NoticeError, "Failed to refresh conversations")
		return err
	}

	c.mu.Lock()
	c.conversations = list.Data
	c.mu.Unlock()
	c.emitChange()
	return nil
}

// SelectConversation makes userID the active conversation and loads its
// thread. Selecting the already-selected conversation re-fetches (re-click is
// the manual refresh gesture), but a second call supersedes any in-flight
// load: only the most recent call's response may commit.
func (c *ChatController) SelectConversation(ctx context.Context, userID int64) error {
	c.mu.Lock()
	c.selectedUserID = userID
	c.loading = true
	c.loadGen++
	gen := c.loadGen
	c.mu.Unlock()
	c.emitChange()

	return c.loadThread(ctx, userID, gen)
}

// loadThread fetches {user, messages} for userID and, if the response still
// matches the current selection, commits both atomically. After a successful
// commit it requests mark-as-read and then a conversations refresh, in that
// order, so unread badges converge within one poll cycle.
func (c *ChatController) loadThread(ctx context.Context, userID int64, gen uint64) error {
	thread, err := c.api.GetThread(ctx, userID, 1, threadPerPage)
	if err != nil {
		c.mu.Lock()
		current := c.selectedUserID == userID && c.loadGen == gen
		if current {
			c.loading = false
		}
		c.mu.Unlock()
		if !current {
			// The admin has moved on; a failure for an abandoned selection
			// is as stale as a late success.
			log.Debug().Err(err).Int64("userID", userID).Uint64("gen", gen).Msg("Dropping stale thread failure")
			return nil
		}
		c.emitChange()
		log.Warn().Err(err).Int64("userID", userID).Msg("Thread load failed")
		c.notifyf(NoticeError, "Failed to load conversation")
		return err
	}

	c.mu.Lock()
	if c.selectedUserID != userID || c.loadGen != gen {
		c.mu.Unlock()
		log.Debug().Int64("userID", userID).Uint64("gen", gen).Msg("Dropping stale thread response")
		return nil
	}
	user := thread.User
	c.selectedUser = &user
	c.thread = thread.Messages
	c.loading = false
	c.mu.Unlock()
	c.emitChange()
	log.Debug().Int64("userID", userID).Str("user", user.DisplayName()).Int("messages", len(thread.Messages)).Msg("Thread loaded")

	// Fire-and-forget: a mark-read failure only delays badge convergence
	// until the next poll cycle.
	if err := c.api.MarkMessagesRead(ctx, userID); err != nil {
		log.Warn().Err(err).Int64("userID", userID).Msg("Mark-as-read failed")
	}
	_ = c.RefreshConversations(ctx)
	return nil
}

// SendMessage posts an admin message for userID. Blank text and overlapping
// sends are rejected locally without touching the network. The message is
// never inserted optimistically; the thread is reloaded after the backend
// confirms.
func (c *ChatController) SendMessage(ctx context.Context, userID int64, text string, viaWhatsApp bool) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInProgress
	}
	c.sending = true
	c.mu.Unlock()
	c.emitChange()

	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
		c.emitChange()
	}()

	if _, err := c.api.SendMessage(ctx, userID, text, viaWhatsApp); err != nil {
		log.Warn().Err(err).Int64("userID", userID).Msg("Message send failed")
		c.notifyf(NoticeError, "Failed to send message")
		return err
	}

	c.notifyf(NoticeSuccess, "Message sent")

	c.mu.Lock()
	gen := c.loadGen
	c.mu.Unlock()
	_ = c.loadThread(ctx, userID, gen)
	return nil
}

// ToggleBotPause flips the bot_paused flag for userID. On success both the
// open thread (when userID is selected) and the conversation list are
// reloaded from the backend so the flag never visibly disagrees between the
// two. On failure nothing changes locally.
func (c *ChatController) ToggleBotPause(ctx context.Context, userID int64) error {
	resp, err := c.api.ToggleBot(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("userID", userID).Msg("Bot toggle failed")
		c.notifyf(NoticeError, "Failed to toggle bot")
		return err
	}
	c.notifyf(NoticeSuccess, "%s", resp.Message)

	c.mu.Lock()
	selected := c.selectedUserID
	gen := c.loadGen
	c.mu.Unlock()

	if selected == userID {
		// loadThread refreshes the conversation list as its follow-up.
		_ = c.loadThread(ctx, userID, gen)
	} else {
		_ = c.RefreshConversations(ctx)
	}
	return nil
}

// StartPolling begins a recurring refresh of the conversation list and, when
// a conversation is selected, its thread. Fetch failures are reported through
// the notifier and never stop the loop.
func (c *ChatController) StartPolling(interval time.Duration) {
	c.StopPolling()

	c.pollMu.Lock()
	stop := make(chan struct{})
	done := make(chan struct{})
	c.pollStop = stop
	c.pollDone = done
	c.pollMu.Unlock()

	go c.pollLoop(interval, stop, done)
	log.Info().Dur("interval", interval).Msg("Chat polling started")
}

func (c *ChatController) pollLoop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// A tick racing the stop signal must not issue another fetch.
		select {
		case <-stop:
			return
		default:
		}

		ctx := context.Background()
		_ = c.RefreshConversations(ctx)

		c.mu.Lock()
		selected := c.selectedUserID
		gen := c.loadGen
		c.mu.Unlock()
		if selected != 0 {
			_ = c.loadThread(ctx, selected, gen)
		}
	}
}

// StopPolling cancels the polling timer and waits for the loop to exit, so
// no fetch is issued by the timer after it returns. In-flight fetches are not
// cancelled; their results are conditionally discarded by the commit guards.
func (c *ChatController) StopPolling() {
	c.pollMu.Lock()
	stop, done := c.pollStop, c.pollDone
	c.pollStop, c.pollDone = nil, nil
	c.pollMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	log.Info().Msg("Chat polling stopped")
}
