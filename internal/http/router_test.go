package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mosaicgrove/storefront/internal/auth"
	"github.com/mosaicgrove/storefront/internal/cart"
	"github.com/mosaicgrove/storefront/internal/checkout"
	"github.com/mosaicgrove/storefront/internal/domain"
	"github.com/mosaicgrove/storefront/internal/handoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testEnv struct {
	router   http.Handler
	registry *cart.Registry
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T, maxBody int64) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := cart.NewRegistry(func() *cart.Store {
		return cart.NewStore(nil, cart.Options{Logger: log})
	}, 0)
	t.Cleanup(registry.Close)

	verifier := auth.NewVerifier(testSecret, time.Hour)
	router := NewRouter(Deps{
		Registry:       registry,
		Pipeline:       checkout.NewPipeline(handoff.NewMemoryStore(), 0, log),
		Verifier:       verifier,
		Logger:         log,
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    maxBody,
	})
	return &testEnv{router: router, registry: registry, verifier: verifier}
}

// client keeps the session cookie between requests, like a browser would.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
	token  string
}

func (e *testEnv) guest(t *testing.T) *client {
	return &client{t: t, env: e}
}

func (e *testEnv) user(t *testing.T, sess auth.Session) *client {
	token, err := e.verifier.Issue(sess)
	require.NoError(t, err)
	return &client{t: t, env: e, token: token}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.env.router.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func honeyJSON() map[string]any {
	return map[string]any{
		"id":             7,
		"name":           "Wild Forest Honey",
		"price":          12.99,
		"weight_options": []float64{250, 500},
		"weight_unit":    "g",
		"variations": []map[string]any{
			{"name": "Type", "options": []string{"Raw", "Roasted"}},
		},
	}
}

func addHoney(qty int) map[string]any {
	return map[string]any{
		"product":            honeyJSON(),
		"quantity":           qty,
		"selected_variation": map[string]string{"Type": "Raw"},
		"selected_weight":    250,
	}
}

var ama = auth.Session{UserID: "user-1", Email: "ama@example.com", Name: "Ama Mensah"}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	rec := env.guest(t).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	env.guest(t).do(http.MethodGet, "/health", nil)

	rec := env.guest(t).do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_http_requests_total")
}

func TestCart_GuestAddMerges(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", addHoney(2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, c.cookie)
	first := decode[CartResponseDTO](t, rec)
	assert.Equal(t, "guest", first.Mode)
	require.Len(t, first.Notices, 1)
	assert.Equal(t, "Added to Cart", first.Notices[0].Title)

	rec = c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CartResponseDTO](t, rec)

	require.Len(t, resp.Lines, 1)
	assert.Equal(t, 3, resp.Lines[0].Quantity)
	assert.Equal(t, domain.ProductID("7"), resp.Lines[0].ProductID())
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "38.97", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "12.99", resp.Lines[0].UnitPriceForWeight.StringFixed(2))
	assert.Len(t, resp.Notices, 1, "notices are drained by each response")

	rec = c.do(http.MethodGet, "/api/v1/cart/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Notices)
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)
	c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))

	other := env.guest(t)
	rec := other.do(http.MethodGet, "/api/v1/cart/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)
	assert.Equal(t, 2, env.registry.Len())
}

func TestCart_SelectionErrors(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)

	body := addHoney(1)
	delete(body, "selected_variation")
	rec := c.do(http.MethodPost, "/api/v1/cart/items", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "incomplete_selection", decode[ErrorResponse](t, rec).Code)

	body = addHoney(1)
	body["selected_weight"] = 300
	rec = c.do(http.MethodPost, "/api/v1/cart/items", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_selection", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodPost, "/api/v1/cart/items", `{"product":{"name":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_product_id", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodPost, "/api/v1/cart/items", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[ErrorResponse](t, rec).Code)

	rec = c.do(http.MethodGet, "/api/v1/cart/", nil)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	lineID := decode[CartResponseDTO](t, rec).Lines[0].ID
	require.NotEmpty(t, lineID)

	rec = c.do(http.MethodPut, "/api/v1/cart/items/7", map[string]any{"quantity": 5, "line_id": lineID})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CartResponseDTO](t, rec)
	assert.Equal(t, 5, resp.Lines[0].Quantity)
	assert.Equal(t, 5, resp.Count)

	heavy := addHoney(1)
	heavy["selected_weight"] = 500
	rec = c.do(http.MethodPost, "/api/v1/cart/items", heavy)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp = decode[CartResponseDTO](t, rec)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "25.98", resp.Lines[1].UnitPriceForWeight.StringFixed(2))
	rec = c.do(http.MethodPut, "/api/v1/cart/items/7", map[string]any{"quantity": 0, "line_id": resp.Lines[1].ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPut, "/api/v1/cart/items/7", map[string]any{"quantity": 0, "line_id": lineID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)

	c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	rec = c.do(http.MethodDelete, "/api/v1/cart/items/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)

	c.do(http.MethodPost, "/api/v1/cart/items", addHoney(2))
	rec = c.do(http.MethodDelete, "/api/v1/cart/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CartResponseDTO](t, rec)
	assert.Empty(t, resp.Lines)
	assert.True(t, resp.Subtotal.IsZero())
}

func TestEndSession(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)
	c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	require.Equal(t, 1, env.registry.Len())

	rec := c.do(http.MethodDelete, "/api/v1/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.registry.Len())
	assert.Equal(t, -1, c.cookie.MaxAge)
}

func TestEndSession_DiscardsCheckoutHandoff(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.user(t, ama)
	c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	rec := c.do(http.MethodPost, "/api/v1/checkout/shipping", shippingForm("standard"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	old := *c.cookie

	rec = c.do(http.MethodDelete, "/api/v1/session", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// a stale cookie must not resurrect the shipping snapshot
	c.cookie = &old
	rec = c.do(http.MethodGet, "/api/v1/checkout/review", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "/checkout", decode[ErrorResponse](t, rec).Redirect)
}

func TestWishlist(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)

	for range 2 {
		rec := c.do(http.MethodPost, "/api/v1/wishlist/", map[string]any{"product": honeyJSON()})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := c.do(http.MethodGet, "/api/v1/wishlist/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[WishlistResponseDTO](t, rec).Items
	require.Len(t, items, 1)
	assert.Equal(t, domain.ProductID("7"), items[0].ProductID())

	rec = c.do(http.MethodDelete, "/api/v1/wishlist/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[WishlistResponseDTO](t, rec).Items)
}

func TestAuth_InvalidToken(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.guest(t)
	c.token = "not-a-jwt"

	rec := c.do(http.MethodGet, "/api/v1/cart/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, env.registry.Len())
}

func TestCart_AuthenticatedMode(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.user(t, ama)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "authenticated", decode[CartResponseDTO](t, rec).Mode)

	// the same browser session without a token is a guest again
	c.token = ""
	rec = c.do(http.MethodGet, "/api/v1/cart/", nil)
	resp := decode[CartResponseDTO](t, rec)
	assert.Equal(t, "guest", resp.Mode)
	assert.Empty(t, resp.Lines)
}

func shippingForm(method string) map[string]any {
	return map[string]any{
		"shipping_info": map[string]string{
			"full_name":   "Ama Mensah",
			"email":       "ama@example.com",
			"phone":       "+233 20 000 0000",
			"address":     "12 Oxford Street",
			"city":        "Accra",
			"state":       "Greater Accra",
			"postal_code": "GA-100",
			"country":     "Ghana",
		},
		"delivery_method": method,
	}
}

func TestCheckout_Guards(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	t.Run("empty cart", func(t *testing.T) {
		rec := env.user(t, ama).do(http.MethodGet, "/api/v1/checkout/shipping", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "/cart", decode[ErrorResponse](t, rec).Redirect)
	})

	t.Run("guest", func(t *testing.T) {
		c := env.guest(t)
		c.do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
		rec := c.do(http.MethodGet, "/api/v1/checkout/shipping", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		resp := decode[ErrorResponse](t, rec)
		assert.Equal(t, "redirect", resp.Code)
		assert.Equal(t, "/login", resp.Redirect)
		assert.Equal(t, "/checkout", resp.ReturnTo)
	})

	t.Run("review without shipping", func(t *testing.T) {
		rec := env.user(t, ama).do(http.MethodGet, "/api/v1/checkout/review", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "/checkout", decode[ErrorResponse](t, rec).Redirect)
	})

	t.Run("success without order", func(t *testing.T) {
		rec := env.user(t, ama).do(http.MethodGet, "/api/v1/checkout/success", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "/order-review", decode[ErrorResponse](t, rec).Redirect)
	})
}

func TestCheckout_FullFlow(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	c := env.user(t, ama)

	c.do(http.MethodPost, "/api/v1/cart/items", addHoney(2))

	rec := c.do(http.MethodGet, "/api/v1/checkout/shipping", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[checkout.ShippingView](t, rec)
	assert.Equal(t, "ama@example.com", view.Form.ShippingInfo.Email)
	assert.Equal(t, "Ghana", view.Form.ShippingInfo.Country)
	assert.Len(t, view.DeliveryMethods, 3)

	bad := shippingForm("standard")
	bad["shipping_info"].(map[string]string)["phone"] = ""
	rec = c.do(http.MethodPost, "/api/v1/checkout/shipping", bad)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"phone"}, decode[ErrorResponse](t, rec).Fields)

	rec = c.do(http.MethodPost, "/api/v1/checkout/shipping", shippingForm("standard"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[domain.CheckoutSnapshot](t, rec)
	assert.Equal(t, "25.98", snap.Subtotal.StringFixed(2))
	assert.Equal(t, "5.99", snap.DeliveryFee.StringFixed(2))
	assert.Equal(t, "31.97", snap.Total.StringFixed(2))

	rec = c.do(http.MethodGet, "/api/v1/checkout/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "31.97", decode[domain.CheckoutSnapshot](t, rec).Total.StringFixed(2))

	rec = c.do(http.MethodPost, "/api/v1/checkout/orders", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conf := decode[domain.OrderConfirmation](t, rec)
	assert.True(t, strings.HasPrefix(conf.OrderID, "MG-"))
	assert.Equal(t, "31.97", conf.Total.StringFixed(2))

	rec = c.do(http.MethodGet, "/api/v1/cart/", nil)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)

	rec = c.do(http.MethodGet, "/api/v1/checkout/success", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, conf.OrderID, decode[domain.OrderConfirmation](t, rec).OrderID)

	rec = c.do(http.MethodGet, "/api/v1/checkout/review", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminSessions(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	rec := env.guest(t).do(http.MethodGet, "/api/v1/admin/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.user(t, ama).do(http.MethodGet, "/api/v1/admin/sessions", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := ama
	admin.UserID = "admin-1"
	admin.IsAdmin = true
	rec = env.user(t, admin).do(http.MethodGet, "/api/v1/admin/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[SessionStatsDTO](t, rec).ActiveSessions)
}

func TestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, 64)
	rec := env.guest(t).do(http.MethodPost, "/api/v1/cart/items", addHoney(1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large", decode[ErrorResponse](t, rec).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
