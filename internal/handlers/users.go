package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"travel-admin-panel/internal/adapters/backend"
	"travel-admin-panel/internal/audit"
	"travel-admin-panel/internal/models"
)

// ListUsers proxies the customers page query: pagination, sorting, search and
// filter parameters pass through to the backend unchanged.
func (s *Server) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := backend.ListUsersOptions{
			SortBy:    q.Get("sort_by"),
			SortOrder: q.Get("sort_order"),
			Search:    q.Get("search"),
		}
		if status := q.Get("trip_status"); status != "" {
			if !models.ValidTripStatus(status) {
				s.Respond(w, r, http.StatusBadRequest, map[string]string{"error": "invalid trip_status"})
				return
			}
			opts.TripStatus = status
		}
		if page, err := strconv.Atoi(q.Get("page")); err == nil {
			opts.Page = page
		}
		if perPage, err := strconv.Atoi(q.Get("per_page")); err == nil {
			opts.PerPage = perPage
		}
		if raw := q.Get("bot_paused"); raw != "" {
			if paused, err := strconv.ParseBool(raw); err == nil {
				opts.BotPaused = &paused
			}
		}

		list, err := s.api.ListUsers(r.Context(), opts)
		if err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.Respond(w, r, http.StatusOK, list)
	}
}

func (s *Server) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userID(w, r)
		if !ok {
			return
		}
		user, err := s.api.GetUser(r.Context(), userID)
		if err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.Respond(w, r, http.StatusOK, user)
	}
}

func (s *Server) CreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload backend.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.Respond(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if payload.Phone == "" {
			s.Respond(w, r, http.StatusBadRequest, map[string]string{"error": "phone is required"})
			return
		}

		user, err := s.api.CreateUser(r.Context(), payload)
		if err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.audit.Publish(audit.EventUserCreated, user.ID, map[string]interface{}{
			"phone": user.Phone,
			"name":  user.DisplayName(),
		})
		s.Respond(w, r, http.StatusCreated, user)
	}
}

func (s *Server) UpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userID(w, r)
		if !ok {
			return
		}
		var payload backend.UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.Respond(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		user, err := s.api.UpdateUser(r.Context(), userID, payload)
		if err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.audit.Publish(audit.EventUserUpdated, userID, nil)
		s.Respond(w, r, http.StatusOK, user)
	}
}

func (s *Server) DeleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userID(w, r)
		if !ok {
			return
		}
		if err := s.api.DeleteUser(r.Context(), userID); err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.audit.Publish(audit.EventUserDeleted, userID, nil)
		s.Respond(w, r, http.StatusOK, map[string]string{"message": "User deleted successfully"})
	}
}

// ToggleBot flips bot_paused from the customers list. The chat view toggles
// through its own controller; both converge on the backend's stored value on
// their next refresh.
func (s *Server) ToggleBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userID(w, r)
		if !ok {
			return
		}
		resp, err := s.api.ToggleBot(r.Context(), userID)
		if err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.audit.Publish(audit.EventBotToggled, userID, map[string]interface{}{"bot_paused": resp.BotPaused})
		s.Respond(w, r, http.StatusOK, resp)
	}
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.Respond(w, r, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return 0, false
	}
	return userID, true
}
