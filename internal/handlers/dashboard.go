package handlers

import (
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"travel-admin-panel/internal/models"
)

const statsCacheKey = "dashboard_stats"

// DashboardStats serves the KPI snapshot. The backend recomputes the counts
// on every call, so a short TTL cache keeps dashboard reloads cheap without
// the numbers going meaningfully stale.
func (s *Server) DashboardStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cached, found := s.statsCache.Get(statsCacheKey); found {
			s.Respond(w, r, http.StatusOK, cached.(*models.DashboardStats))
			return
		}

		stats, err := s.api.GetDashboardStats(r.Context())
		if err != nil {
			s.RespondError(w, r, err)
			return
		}

		s.statsCache.Set(statsCacheKey, stats, cache.DefaultExpiration)
		s.Respond(w, r, http.StatusOK, stats)
	}
}

// Status reports service health for probes and the panel footer.
func (s *Server) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Respond(w, r, http.StatusOK, map[string]interface{}{
			"status":         "running",
			"uptime_seconds": int64(time.Since(s.started).Seconds()),
		})
	}
}
