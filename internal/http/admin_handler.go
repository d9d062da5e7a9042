package http

import (
	"net/http"

	"github.com/mosaicgrove/storefront/internal/cart"
)

type AdminHandler struct {
	registry *cart.Registry
}

func NewAdminHandler(registry *cart.Registry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

type SessionStatsDTO struct {
	ActiveSessions int `json:"active_sessions"`
}

// GET /api/v1/admin/sessions
func (h *AdminHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SessionStatsDTO{ActiveSessions: h.registry.Len()})
}
