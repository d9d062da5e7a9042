package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mosaicgrove/storefront/internal/auth"
	"github.com/mosaicgrove/storefront/internal/checkout"
)

type CheckoutHandler struct {
	pipeline    *checkout.Pipeline
	timeout     time.Duration
	log         *slog.Logger
	maxBodySize int64
}

func NewCheckoutHandler(pipeline *checkout.Pipeline, timeout time.Duration, log *slog.Logger, maxBodySize int64) *CheckoutHandler {
	return &CheckoutHandler{
		pipeline:    pipeline,
		timeout:     timeout,
		log:         log,
		maxBodySize: maxBodySize,
	}
}

func (h *CheckoutHandler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// GET /api/v1/checkout/shipping
func (h *CheckoutHandler) GetShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	view, err := h.pipeline.Shipping(ctx, getSessionID(r.Context()), auth.FromContext(r.Context()), getStore(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	var form checkout.ShippingForm
	if !decodeJSON(w, r, h.maxBodySize, &form) {
		return
	}

	snap, err := h.pipeline.SubmitShipping(ctx, getSessionID(r.Context()), auth.FromContext(r.Context()), getStore(r.Context()), form)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GET /api/v1/checkout/review
func (h *CheckoutHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	snap, err := h.pipeline.Review(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// POST /api/v1/checkout/orders
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	conf, err := h.pipeline.PlaceOrder(ctx, getSessionID(r.Context()), getStore(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, conf)
}

// GET /api/v1/checkout/success
func (h *CheckoutHandler) GetSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	conf, err := h.pipeline.Success(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, conf)
}
