package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mosaicgrove/storefront/internal/checkout"
	"github.com/mosaicgrove/storefront/internal/domain"
)

type ErrorResponse struct {
	Error    string   `json:"error"`
	Code     string   `json:"code,omitempty"`
	Details  string   `json:"details,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
	ReturnTo string   `json:"return_to,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps pipeline and domain errors onto HTTP statuses. Stage
// guards answer 409 with the path the client should navigate to.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if redirect, ok := checkout.AsRedirect(err); ok {
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:    redirect.Reason,
			Code:     "redirect",
			Redirect: redirect.To.Path(),
			ReturnTo: redirect.ReturnTo,
		})
		return
	}
	if verr, ok := checkout.AsValidation(err); ok {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "please fill in all required fields",
			Code:   "validation_failed",
			Fields: verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrIncompleteSelection):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: domain.ErrIncompleteSelection.Error(), Code: "incomplete_selection", Details: err.Error()})
	case errors.Is(err, domain.ErrUnknownOption), errors.Is(err, domain.ErrUnknownWeight):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_selection"})
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
