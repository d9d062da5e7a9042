package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mosaicgrove/storefront/internal/cart"
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	log         *slog.Logger
	maxBodySize int64
}

func NewCartHandler(log *slog.Logger, maxBodySize int64) *CartHandler {
	return &CartHandler{log: log, maxBodySize: maxBodySize}
}

type AddItemRequestDTO struct {
	Product   domain.Product    `json:"product"`
	Quantity  int               `json:"quantity"`
	Variation map[string]string `json:"selected_variation,omitempty"`
	Weight    *float64          `json:"selected_weight,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity  int               `json:"quantity"`
	LineID    string            `json:"line_id,omitempty"`
	Variation map[string]string `json:"selected_variation,omitempty"`
	Weight    *float64          `json:"selected_weight,omitempty"`
}

// CartLineDTO is a cart line plus its unit price at the selected weight.
type CartLineDTO struct {
	domain.CartLine
	UnitPriceForWeight decimal.Decimal `json:"unit_price_for_weight"`
}

type CartResponseDTO struct {
	Mode     string          `json:"mode"`
	Lines    []CartLineDTO   `json:"lines"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Notices  []cart.Notice   `json:"notices,omitempty"`
}

func cartResponse(s *cart.Store) CartResponseDTO {
	lines := s.Lines()
	views := make([]CartLineDTO, 0, len(lines))
	for _, l := range lines {
		views = append(views, CartLineDTO{
			CartLine:           l,
			UnitPriceForWeight: l.Product.PriceForWeight(l.Weight),
		})
	}
	return CartResponseDTO{
		Mode:     s.Mode().String(),
		Lines:    views,
		Count:    domain.ItemCount(lines),
		Subtotal: domain.Subtotal(lines),
		Notices:  s.Notices(),
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cartResponse(getStore(r.Context())))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}
	if req.Product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product.id is required")
		return
	}
	if req.Product.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "product.price must not be negative")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	store := getStore(r.Context())
	if err := store.AddToCart(req.Product, req.Quantity, req.Variation, req.Weight); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(store))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := domain.CanonicalID(chi.URLParam(r, "product_id"))
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBodySize, &req) {
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	store := getStore(r.Context())
	store.UpdateQuantity(productID, req.Quantity, req.LineID, req.Variation, req.Weight)
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := domain.CanonicalID(chi.URLParam(r, "product_id"))
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	store := getStore(r.Context())
	store.RemoveFromCart(productID, r.URL.Query().Get("line_id"))
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store := getStore(r.Context())
	store.ClearCart()
	respondJSON(w, http.StatusOK, cartResponse(store))
}
