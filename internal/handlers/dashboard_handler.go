package handlers

import (
	"net/http"
	"strconv"

	"procure-backend/internal/services"
	"procure-backend/pkg/utils"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats handles GET /api/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.Stats(r.Context())
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

// RecentRequests handles GET /api/dashboard/recent-requests?days=7&status=pending
func (h *DashboardHandler) RecentRequests(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	status := r.URL.Query().Get("status")

	reqs, err := h.dashboardService.RecentRequests(r.Context(), days, status)
	if err != nil {
		utils.WriteServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reqs)
}
