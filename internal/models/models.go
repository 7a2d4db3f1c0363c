package models

import (
	"fmt"
	"strings"
	"time"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderBot   SenderType = "bot"
	SenderAdmin SenderType = "admin"
)

// TripStatus values as stored by the backend.
type TripStatus string

const (
	TripUpcoming  TripStatus = "upcoming"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// ValidTripStatus reports whether s is a trip state the backend stores.
func ValidTripStatus(s string) bool {
	switch TripStatus(s) {
	case TripUpcoming, TripActive, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Timestamp wraps time.Time to accept the backend's timestamp encoding.
// The backend serializes datetimes with isoformat(), which omits the zone
// ("2026-08-30T14:05:01.123456"); RFC 3339 is accepted as well.
type Timestamp struct {
	time.Time
}

const isoNoZone = "2006-01-02T15:04:05.999999999"

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(isoNoZone, s)
	if err != nil {
		return fmt.Errorf("cannot parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Time.Format(time.RFC3339Nano) + `"`), nil
}

// User is a WhatsApp customer as the backend serializes it.
type User struct {
	ID            int64      `json:"id"`
	Phone         string     `json:"phone"`
	Name          string     `json:"name,omitempty"`
	Email         string     `json:"email,omitempty"`
	TripID        string     `json:"trip_id,omitempty"`
	TripStatus    TripStatus `json:"trip_status"`
	BotPaused     bool       `json:"bot_paused"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     *Timestamp `json:"created_at,omitempty"`
	UpdatedAt     *Timestamp `json:"updated_at,omitempty"`
	LastMessageAt *Timestamp `json:"last_message_at,omitempty"`
	MessageCount  int        `json:"message_count"`
}

// DisplayName returns the name if set, falling back to the phone number.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Phone
}

// Message is one chat message in a user's thread.
type Message struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Content           string     `json:"content"`
	SenderType        SenderType `json:"sender_type"`
	WhatsAppMessageID string     `json:"whatsapp_message_id,omitempty"`
	IsRead            bool       `json:"is_read"`
	Timestamp         Timestamp  `json:"timestamp"`
}

// Conversation is the backend's projected summary of one user's thread.
// It is recomputed by the backend on every fetch and replaced wholesale here.
type Conversation struct {
	User          User     `json:"user"`
	LatestMessage *Message `json:"latest_message"`
	UnreadCount   int      `json:"unread_count"`
}

// ActivityPoint is one day of message volume for the dashboard chart.
type ActivityPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardStats is the KPI snapshot shown on the dashboard page.
type DashboardStats struct {
	TotalUsers     int             `json:"total_users"`
	ActiveTrips    int             `json:"active_trips"`
	PendingQueries int             `json:"pending_queries"`
	BotPausedCount int             `json:"bot_paused_count"`
	MessagesToday  int             `json:"messages_today"`
	RecentActivity []ActivityPoint `json:"recent_activity"`
}
