package backend

import (
	"fmt"

	"travel-admin-panel/internal/models"
)

// APIError is a non-2xx response from the backend. The panel's HTTP surface
// forwards StatusCode so list/detail pages see the backend's own 404s and
// validation errors instead of a flattened gateway error.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API %s error: status %d, body: %s", e.Op, e.StatusCode, e.Body)
}

// ConversationList is the paginated envelope returned by GET /api/conversations.
type ConversationList struct {
	Data       []models.Conversation `json:"data"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
	TotalPages int                   `json:"total_pages"`
}

// UserList is the paginated envelope returned by GET /api/users.
type UserList struct {
	Data       []models.User `json:"data"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// Thread is the response of GET /api/users/{id}/messages: the user record and
// their message history, oldest first.
type Thread struct {
	User       models.User      `json:"user"`
	Messages   []models.Message `json:"messages"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	TotalPages int              `json:"total_pages"`
}

// SendMessageRequest is the body of POST /api/messages/send.
type SendMessageRequest struct {
	UserID       int64  `json:"user_id"`
	Content      string `json:"content"`
	SendWhatsApp bool   `json:"send_whatsapp"`
}

// SendMessageResponse carries the stored message plus whatever the WhatsApp
// API returned (null when send_whatsapp was false or relaying failed).
type SendMessageResponse struct {
	Message          models.Message         `json:"message"`
	WhatsAppResponse map[string]interface{} `json:"whatsapp_response"`
}

// ToggleBotResponse is the result of POST /api/users/{id}/toggle-bot.
type ToggleBotResponse struct {
	UserID    int64  `json:"user_id"`
	BotPaused bool   `json:"bot_paused"`
	Message   string `json:"message"`
}

// SyncResult is the result of POST /api/sync/customers.
type SyncResult struct {
	Message   string `json:"message"`
	TotalInDB int    `json:"total_in_db"`
}

// AckResponse is the generic {"message": "..."} acknowledgement.
type AckResponse struct {
	Message string `json:"message"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Phone  string `json:"phone"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	TripID string `json:"trip_id,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// UpdateUserRequest is the body of PATCH /api/users/{id}. Nil fields are
// omitted so the backend only touches what the admin actually changed.
type UpdateUserRequest struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	TripID     *string `json:"trip_id,omitempty"`
	TripStatus *string `json:"trip_status,omitempty"`
	BotPaused  *bool   `json:"bot_paused,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// ListUsersOptions mirrors the query parameters of GET /api/users.
type ListUsersOptions struct {
	Page       int
	PerPage    int
	SortBy     string
	SortOrder  string
	Search     string
	TripStatus string
	BotPaused  *bool
}
