package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mosaicgrove/storefront/internal/auth"
	"github.com/mosaicgrove/storefront/internal/cart"
	"github.com/mosaicgrove/storefront/internal/checkout"
	"github.com/mosaicgrove/storefront/internal/metrics"
)

type Deps struct {
	Registry       *cart.Registry
	Pipeline       *checkout.Pipeline
	Verifier       *auth.Verifier
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxBodySize    int64
	SecureCookie   bool
}

func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	cartHandler := NewCartHandler(log, d.MaxBodySize)
	wishlistHandler := NewWishlistHandler(log, d.MaxBodySize)
	checkoutHandler := NewCheckoutHandler(d.Pipeline, d.RequestTimeout, log, d.MaxBodySize)
	adminHandler := NewAdminHandler(d.Registry)
	sessionHandler := NewSessionHandler(d.Registry, d.Pipeline, d.SecureCookie, log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(middleware.Timeout(d.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(d.Verifier))
		r.Use(SessionMiddleware(d.Registry, d.SecureCookie))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.GetWishlist)
			r.Post("/", wishlistHandler.AddItem)
			r.Delete("/{product_id}", wishlistHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/shipping", checkoutHandler.GetShipping)
			r.Post("/shipping", checkoutHandler.SubmitShipping)
			r.Get("/review", checkoutHandler.GetReview)
			r.Post("/orders", checkoutHandler.PlaceOrder)
			r.Get("/success", checkoutHandler.GetSuccess)
		})

		r.Delete("/session", sessionHandler.EndSession)
		r.With(RequireAdmin).Get("/admin/sessions", adminHandler.GetSessions)
	})

	return r
}
