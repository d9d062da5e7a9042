package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mosaicgrove/storefront/internal/cart"
	"github.com/mosaicgrove/storefront/internal/domain"
)

type WishlistHandler struct {
	log         *slog.Logger
	maxBodySize int64
}

func NewWishlistHandler(log *slog.Logger, maxBodySize int64) *WishlistHandler {
	return &WishlistHandler{log: log, maxBodySize: maxBodySize}
}

type AddWishlistRequestDTO struct {
	Product domain.Product `json:"product"`
}

type WishlistResponseDTO struct {
	Items   []domain.WishlistEntry `json:"items"`
	Notices []cart.Notice          `json:"notices,omitempty"`
}

func wishlistResponse(s *cart.Store) WishlistResponseDTO {
	items := s.Wishlist()
	if items == nil {
		items = []domain.WishlistEntry{}
	}
	return WishlistResponseDTO{Items: items, Notices: s.Notices()}
}

func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, wishlistResponse(getStore(r.Context())))
}

func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddWishlistRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}
	if req.Product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product.id is required")
		return
	}

	store := getStore(r.Context())
	store.AddToWishlist(req.Product)
	respondJSON(w, http.StatusOK, wishlistResponse(store))
}

func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := domain.CanonicalID(chi.URLParam(r, "product_id"))
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	store := getStore(r.Context())
	store.RemoveFromWishlist(productID)
	respondJSON(w, http.StatusOK, wishlistResponse(store))
}
