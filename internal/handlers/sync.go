package handlers

import (
	"net/http"

	"travel-admin-panel/internal/audit"
)

// SyncCustomers triggers the backend's knowledge-graph import. The call is
// synchronous on the backend side and can take a while; the panel shows the
// returned summary as a notification.
func (s *Server) SyncCustomers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.api.SyncCustomers(r.Context())
		if err != nil {
			s.RespondError(w, r, err)
			return
		}
		s.audit.Publish(audit.EventCustomerSync, 0, map[string]interface{}{
			"result":      result.Message,
			"total_in_db": result.TotalInDB,
		})
		s.Respond(w, r, http.StatusOK, result)
	}
}
