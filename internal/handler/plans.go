package handler

import (
	"net/http"

	"github.com/careerlift/backend/internal/domain"
)

// ListPlans handles GET /api/plans.
func ListPlans(w http.ResponseWriter, _ *http.Request) {
	Success(w, http.StatusOK, map[string]any{"plans": domain.AvailablePlans()})
}
