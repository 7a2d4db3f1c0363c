package backend

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"travel-admin-panel/internal/models"
	"travel-admin-panel/pkg/httputil"
)

func apiErr(op string, resp *resty.Response) error {
	return &APIError{Op: op, StatusCode: resp.StatusCode(), Body: resp.String()}
}

// Client talks to the travel-bot backend's admin REST API. The backend is the
// source of truth for all data; this client never caches responses.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a backend API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend baseURL cannot be empty")
	}

	client := httputil.NewRestyClient(timeout).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")

	log.Info().Str("baseURL", baseURL).Dur("timeout", timeout).Msg("Backend API client configured")

	return &Client{
		httpClient: client,
		baseURL:    baseURL,
	}, nil
}

// ListConversations fetches the conversation list. The panel requests a single
// large page; unreadOnly narrows the list to users with unread messages.
func (c *Client) ListConversations(ctx context.Context, page, perPage int, unreadOnly bool) (*ConversationList, error) {
	var result ConversationList
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("per_page", strconv.Itoa(perPage)).
		SetQueryParam("unread_only", strconv.FormatBool(unreadOnly)).
		SetResult(&result).
		Get("/api/conversations")
	if err != nil {
		return nil, fmt.Errorf("backend API ListConversations request failed: %w", err)
	}
	if resp.IsError() {
		log.Error().Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Backend API: ListConversations returned an error")
		return nil, apiErr("ListConversations", resp)
	}
	return &result, nil
}

// GetThread fetches the user record together with their message history,
// ordered oldest first by the backend.
func (c *Client) GetThread(ctx context.Context, userID int64, page, perPage int) (*Thread, error) {
	var result Thread
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("per_page", strconv.Itoa(perPage)).
		SetResult(&result).
		Get(fmt.Sprintf("/api/users/%d/messages", userID))
	if err != nil {
		return nil, fmt.Errorf("backend API GetThread request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		log.Error().Int64("userID", userID).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Backend API: GetThread returned an error")
		return nil, apiErr("GetThread", resp)
	}
	return &result, nil
}

// MarkMessagesRead clears the unread flag on every message from userID.
func (c *Client) MarkMessagesRead(ctx context.Context, userID int64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&AckResponse{}).
		Post(fmt.Sprintf("/api/users/%d/messages/mark-read", userID))
	if err != nil {
		return fmt.Errorf("backend API MarkMessagesRead request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		return apiErr("MarkMessagesRead", resp)
	}
	return nil
}

// SendMessage stores an admin message and optionally relays it to WhatsApp.
func (c *Client) SendMessage(ctx context.Context, userID int64, content string, sendWhatsApp bool) (*SendMessageResponse, error) {
	var result SendMessageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(SendMessageRequest{UserID: userID, Content: content, SendWhatsApp: sendWhatsApp}).
		SetResult(&result).
		Post("/api/messages/send")
	if err != nil {
		return nil, fmt.Errorf("backend API SendMessage request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		log.Error().Int64("userID", userID).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Backend API: SendMessage returned an error")
		return nil, apiErr("SendMessage", resp)
	}
	log.Info().Int64("userID", userID).Int64("messageID", result.Message.ID).Bool("sendWhatsApp", sendWhatsApp).Msg("Admin message stored by backend")
	return &result, nil
}

// ToggleBot flips the bot_paused flag for userID and returns the new value.
func (c *Client) ToggleBot(ctx context.Context, userID int64) (*ToggleBotResponse, error) {
	var result ToggleBotResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Post(fmt.Sprintf("/api/users/%d/toggle-bot", userID))
	if err != nil {
		return nil, fmt.Errorf("backend API ToggleBot request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		log.Error().Int64("userID", userID).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Backend API: ToggleBot returned an error")
		return nil, apiErr("ToggleBot", resp)
	}
	return &result, nil
}

// GetDashboardStats fetches the KPI snapshot for the dashboard page.
func (c *Client) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var result models.DashboardStats
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/api/dashboard/stats")
	if err != nil {
		return nil, fmt.Errorf("backend API GetDashboardStats request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("GetDashboardStats", resp)
	}
	return &result, nil
}

// SyncCustomers triggers the backend's knowledge-graph customer import.
func (c *Client) SyncCustomers(ctx context.Context) (*SyncResult, error) {
	var result SyncResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Post("/api/sync/customers")
	if err != nil {
		return nil, fmt.Errorf("backend API SyncCustomers request failed: %w", err)
	}
	if resp.IsError() {
		log.Error().Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Backend API: SyncCustomers returned an error")
		return nil, apiErr("SyncCustomers", resp)
	}
	log.Info().Str("result", result.Message).Int("totalInDB", result.TotalInDB).Msg("Customer sync triggered")
	return &result, nil
}

// ListUsers fetches the paginated user list for the customers page.
func (c *Client) ListUsers(ctx context.Context, opts ListUsersOptions) (*UserList, error) {
	req := c.httpClient.R().SetContext(ctx)
	if opts.Page > 0 {
		req.SetQueryParam("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		req.SetQueryParam("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.SortBy != "" {
		req.SetQueryParam("sort_by", opts.SortBy)
	}
	if opts.SortOrder != "" {
		req.SetQueryParam("sort_order", opts.SortOrder)
	}
	if opts.Search != "" {
		req.SetQueryParam("search", opts.Search)
	}
	if opts.TripStatus != "" {
		req.SetQueryParam("trip_status", opts.TripStatus)
	}
	if opts.BotPaused != nil {
		req.SetQueryParam("bot_paused", strconv.FormatBool(*opts.BotPaused))
	}

	var result UserList
	resp, err := req.SetResult(&result).Get("/api/users")
	if err != nil {
		return nil, fmt.Errorf("backend API ListUsers request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiErr("ListUsers", resp)
	}
	return &result, nil
}

// GetUser fetches a single user record.
func (c *Client) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var result models.User
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/api/users/%d", userID))
	if err != nil {
		return nil, fmt.Errorf("backend API GetUser request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		return nil, apiErr("GetUser", resp)
	}
	return &result, nil
}

// CreateUser registers a new customer.
func (c *Client) CreateUser(ctx context.Context, payload CreateUserRequest) (*models.User, error) {
	var result models.User
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Post("/api/users")
	if err != nil {
		return nil, fmt.Errorf("backend API CreateUser request failed: %w", err)
	}
	if resp.IsError() {
		log.Error().Str("phone", payload.Phone).Int("statusCode", resp.StatusCode()).Str("responseBody", resp.String()).Msg("Backend API: CreateUser returned an error")
		return nil, apiErr("CreateUser", resp)
	}
	return &result, nil
}

// UpdateUser applies a partial update to a user record.
func (c *Client) UpdateUser(ctx context.Context, userID int64, payload UpdateUserRequest) (*models.User, error) {
	var result models.User
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		Patch(fmt.Sprintf("/api/users/%d", userID))
	if err != nil {
		return nil, fmt.Errorf("backend API UpdateUser request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		return nil, apiErr("UpdateUser", resp)
	}
	return &result, nil
}

// DeleteUser removes a user and their message history.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&AckResponse{}).
		Delete(fmt.Sprintf("/api/users/%d", userID))
	if err != nil {
		return fmt.Errorf("backend API DeleteUser request failed for user %d: %w", userID, err)
	}
	if resp.IsError() {
		return apiErr("DeleteUser", resp)
	}
	return nil
}
