package handler

import (
	"net/http"

	"github.com/careerlift/backend/internal/service"
)

// AdminHandler serves the admin work queue and dashboard.
type AdminHandler struct {
	subs  *service.SubscriptionService
	stats *service.StatsService
}

func NewAdminHandler(subs *service.SubscriptionService, stats *service.StatsService) *AdminHandler {
	return &AdminHandler{subs: subs, stats: stats}
}

// Queue handles GET /api/admin/subscriptions?assignment=unassigned|assigned|all.
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	items, err := h.subs.Queue(r.Context(), r.URL.Query().Get("assignment"))
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"subscriptions": items})
}

// GetStats handles GET /api/admin/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	Success(w, http.StatusOK, map[string]any{"stats": stats})
}
