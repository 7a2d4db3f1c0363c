package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"travel-admin-panel/internal/adapters/backend"
	"travel-admin-panel/internal/audit"
	"travel-admin-panel/internal/models"
)

// BackendAPI is the slice of the backend client the HTTP surface proxies.
type BackendAPI interface {
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	SyncCustomers(ctx context.Context) (*backend.SyncResult, error)
	ListUsers(ctx context.Context, opts backend.ListUsersOptions) (*backend.UserList, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CreateUser(ctx context.Context, payload backend.CreateUserRequest) (*models.User, error)
	UpdateUser(ctx context.Context, userID int64, payload backend.UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, userID int64) error
	ToggleBot(ctx context.Context, userID int64) (*backend.ToggleBotResponse, error)
}

// Server is the HTTP surface consumed by the rendering layer: the dashboard,
// the customers page, the sync trigger, and the chat websocket.
type Server struct {
	api         BackendAPI
	audit       *audit.Publisher
	chatHandler http.Handler
	router      *mux.Router
	handler     http.Handler
	statsCache  *cache.Cache
	started     time.Time
}

// NewServer wires the routes and middleware chain. chatHandler serves the
// chat websocket and may be nil in tests.
func NewServer(api BackendAPI, auditPub *audit.Publisher, chatHandler http.Handler, statsTTL time.Duration) *Server {
	s := &Server{
		api:         api,
		audit:       auditPub,
		chatHandler: chatHandler,
		router:      mux.NewRouter(),
		statsCache:  cache.New(statsTTL, 2*statsTTL),
		started:     time.Now(),
	}
	s.routes()

	chain := alice.New(s.requestID, s.logRequests, s.recoverPanic)
	s.handler = chain.Then(s.router)
	return s
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Handle("/dashboard/stats", s.DashboardStats()).Methods(http.MethodGet)
	api.Handle("/users", s.ListUsers()).Methods(http.MethodGet)
	api.Handle("/users", s.CreateUser()).Methods(http.MethodPost)
	api.Handle("/users/{id:[0-9]+}", s.GetUser()).Methods(http.MethodGet)
	api.Handle("/users/{id:[0-9]+}", s.UpdateUser()).Methods(http.MethodPatch)
	api.Handle("/users/{id:[0-9]+}", s.DeleteUser()).Methods(http.MethodDelete)
	api.Handle("/users/{id:[0-9]+}/toggle-bot", s.ToggleBot()).Methods(http.MethodPost)
	api.Handle("/sync/customers", s.SyncCustomers()).Methods(http.MethodPost)
	api.Handle("/status", s.Status()).Methods(http.MethodGet)

	if s.chatHandler != nil {
		s.router.Handle("/ws/chat", s.chatHandler)
	}
}

// Respond writes data as JSON with the given status code.
func (s *Server) Respond(w http.ResponseWriter, _ *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// RespondError maps a backend client error to the panel's error shape. Non-2xx
// backend responses keep their status code; transport failures become 502.
func (s *Server) RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		s.Respond(w, r, apiErr.StatusCode, map[string]string{"error": apiErr.Body})
		return
	}
	s.Respond(w, r, http.StatusBadGateway, map[string]string{"error": err.Error()})
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		id, _ := r.Context().Value(requestIDKey{}).(string)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("requestID", id).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panicked")
				s.Respond(w, r, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
