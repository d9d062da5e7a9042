package http

import (
	"log/slog"
	"net/http"

	"github.com/mosaicgrove/storefront/internal/cart"
	"github.com/mosaicgrove/storefront/internal/checkout"
)

type SessionHandler struct {
	registry *cart.Registry
	pipeline *checkout.Pipeline
	secure   bool
	log      *slog.Logger
}

func NewSessionHandler(registry *cart.Registry, pipeline *checkout.Pipeline, secure bool, log *slog.Logger) *SessionHandler {
	return &SessionHandler{registry: registry, pipeline: pipeline, secure: secure, log: log}
}

// DELETE /api/v1/session
//
// Ends the browser session: its cart store is torn down, any checkout
// handoff dropped and the cookie expired. Pending remote writes are drained
// first.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sid := getSessionID(r.Context())
	h.registry.Release(sid)
	if err := h.pipeline.Discard(r.Context(), sid); err != nil {
		// the handoff expires on its own TTL
		h.log.WarnContext(r.Context(), "failed to discard checkout handoff", "error", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
