package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccube-shop/storefront/internal/domain/auth"
	"github.com/ccube-shop/storefront/internal/domain/cart"
	"github.com/ccube-shop/storefront/internal/domain/catalog"
	"github.com/ccube-shop/storefront/internal/domain/promo"
	"github.com/ccube-shop/storefront/internal/domain/wishlist"
)

const (
	testPepper = "test-pepper"
	testAPIKey = "secret-key"
	testDevice = "device-123"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*catalog.Product
}

func (m *mockProductRepo) List(_ context.Context, category string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.byID {
		if category == "" || p.Category == category {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Upsert(_ context.Context, _ catalog.Product) error {
	return nil
}

type mockPromoRepo struct {
	rules []promo.Rule
}

func (m *mockPromoRepo) ListActive(_ context.Context) ([]promo.Rule, error) {
	return m.rules, nil
}

func (m *mockPromoRepo) Upsert(_ context.Context, _ promo.Rule) error {
	return nil
}

type mockCartRepo struct {
	carts map[string]*cart.Cart
}

func (m *mockCartRepo) Get(_ context.Context, deviceID string) (*cart.Cart, error) {
	c, ok := m.carts[deviceID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *cart.Cart) error {
	m.carts[c.DeviceID] = c
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, deviceID string) error {
	delete(m.carts, deviceID)
	return nil
}

func (m *mockCartRepo) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockWishlistRepo struct {
	entries []wishlist.Entry
}

func (m *mockWishlistRepo) List(_ context.Context, deviceID string) ([]wishlist.Entry, error) {
	var out []wishlist.Entry
	for _, e := range m.entries {
		if e.DeviceID == deviceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockWishlistRepo) Add(_ context.Context, e wishlist.Entry) error {
	for _, have := range m.entries {
		if have.DeviceID == e.DeviceID && have.ProductID == e.ProductID {
			return nil
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockWishlistRepo) Remove(_ context.Context, deviceID, productID string) (bool, error) {
	for i, e := range m.entries {
		if e.DeviceID == deviceID && e.ProductID == productID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockAPIKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return info, nil
}

// --- Test fixture ---

type fixture struct {
	handler http.Handler
}

func newFixture(products []catalog.Product, rules []promo.Rule) *fixture {
	productRepo := &mockProductRepo{byID: make(map[string]*catalog.Product)}
	for i := range products {
		productRepo.byID[products[i].ID] = &products[i]
	}
	promoRepo := &mockPromoRepo{rules: rules}
	cartRepo := &mockCartRepo{carts: make(map[string]*cart.Cart)}
	wishlistRepo := &mockWishlistRepo{}

	hash := auth.HashKey(testPepper, testAPIKey)
	apikeyRepo := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "test", Scopes: []string{"*"}},
	}}

	cartSvc := cart.NewService(cartRepo, productRepo, promoRepo, promo.NewEngine(nil), cart.ServiceConfig{
		TTL:     2 * time.Hour,
		TaxRate: decimal.RequireFromString("0.14"),
	})
	wishlistSvc := wishlist.NewService(wishlistRepo, productRepo)

	h := NewHandler(productRepo, promoRepo, cartSvc, wishlistSvc, apikeyRepo, testPepper)
	return &fixture{handler: h.Router()}
}

func scalarProduct(id, category, price string) catalog.Product {
	return catalog.Product{
		ID:       id,
		Name:     id,
		Category: category,
		Price:    catalog.PriceSpec{Kind: catalog.PriceScalar, Scalar: decimal.RequireFromString(price)},
		InStock:  true,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func authedHeaders() map[string]string {
	return map[string]string{
		"X-Device-ID": testDevice,
		"X-API-Key":   testAPIKey,
	}
}

func deviceHeaders() map[string]string {
	return map[string]string{"X-Device-ID": testDevice}
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture([]catalog.Product{
		scalarProduct("p1", "candles", "100"),
		scalarProduct("p2", "soaps", "50"),
	}, nil)

	w := f.do(t, http.MethodGet, "/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Len(t, out, 2)
}

func TestListProducts_CategoryFilter(t *testing.T) {
	f := newFixture([]catalog.Product{
		scalarProduct("p1", "candles", "100"),
		scalarProduct("p2", "soaps", "50"),
	}, nil)

	w := f.do(t, http.MethodGet, "/products?category=candles", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0].ID)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(nil, nil)

	w := f.do(t, http.MethodGet, "/products/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var e errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	assert.Equal(t, http.StatusNotFound, e.Code)
}

func TestListPromotions(t *testing.T) {
	f := newFixture(nil, []promo.Rule{{
		ID: "b2g1", Name: "Bundle", Active: true, Type: promo.TypeBuyXGetY,
		BuyQuantity: 2, FreeQuantity: 1, ApplicableProducts: []string{"p1"},
	}})

	w := f.do(t, http.MethodGet, "/promotions", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []promotionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.Equal(t, "Buy 2, Get 1 Free!", out[0].Description)
}

func TestCart_RequiresDeviceID(t *testing.T) {
	f := newFixture(nil, nil)

	w := f.do(t, http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartMutation_RequiresAPIKey(t *testing.T) {
	f := newFixture([]catalog.Product{scalarProduct("p1", "candles", "100")}, nil)

	w := f.do(t, http.MethodPost, "/cart/items",
		addItemRequest{ProductID: "p1", Quantity: 1}, deviceHeaders())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartMutation_RejectsWrongAPIKey(t *testing.T) {
	f := newFixture([]catalog.Product{scalarProduct("p1", "candles", "100")}, nil)

	headers := deviceHeaders()
	headers["X-API-Key"] = "wrong-key"
	w := f.do(t, http.MethodPost, "/cart/items",
		addItemRequest{ProductID: "p1", Quantity: 1}, headers)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartFlow_AddSummarizeUpdateRemove(t *testing.T) {
	f := newFixture([]catalog.Product{scalarProduct("p1", "candles", "100")}, []promo.Rule{{
		ID: "b2g1", Name: "Bundle", Active: true, Type: promo.TypeBuyXGetY,
		BuyQuantity: 2, FreeQuantity: 1, ApplicableProducts: []string{"p1"},
	}})

	// Add 3 units: the bundle fires, one unit free.
	w := f.do(t, http.MethodPost, "/cart/items",
		addItemRequest{ProductID: "p1", Quantity: 3}, authedHeaders())
	require.Equal(t, http.StatusCreated, w.Code)

	var c cartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.ItemCount)
	assert.InDelta(t, 100.0, c.Discount.TotalSavings, 0.001)
	assert.InDelta(t, 300.0, c.Totals.Subtotal, 0.001)
	assert.InDelta(t, 228.0, c.Totals.Total, 0.001)
	require.Len(t, c.Discount.Applied, 1)
	assert.Equal(t, 1, c.Discount.Applied[0].SetsEligible)

	key := c.Items[0].Key

	// Drop to 2 units: below the bundle threshold, discount disappears.
	w = f.do(t, http.MethodPatch, "/cart/items/"+key,
		updateItemRequest{Quantity: 2}, authedHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.InDelta(t, 0.0, c.Discount.TotalSavings, 0.001)
	require.Len(t, c.Progress, 1)
	// The progress banner still reports eligible at the looser buy threshold.
	assert.True(t, c.Progress[0].Eligible)

	// Remove the line.
	w = f.do(t, http.MethodDelete, "/cart/items/"+key, nil, authedHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.Empty(t, c.Items)

	// Clear returns no content.
	w = f.do(t, http.MethodDelete, "/cart", nil, authedHeaders())
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	f := newFixture(nil, nil)

	w := f.do(t, http.MethodPost, "/cart/items",
		addItemRequest{ProductID: "ghost", Quantity: 1}, authedHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddCartItem_InvalidQuantity(t *testing.T) {
	f := newFixture([]catalog.Product{scalarProduct("p1", "candles", "100")}, nil)

	w := f.do(t, http.MethodPost, "/cart/items",
		addItemRequest{ProductID: "p1", Quantity: 0}, authedHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCartItem_MissingLine(t *testing.T) {
	f := newFixture(nil, nil)

	w := f.do(t, http.MethodPatch, "/cart/items/nope",
		updateItemRequest{Quantity: 2}, authedHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWishlistFlow(t *testing.T) {
	f := newFixture([]catalog.Product{scalarProduct("p1", "candles", "100")}, nil)

	w := f.do(t, http.MethodPut, "/wishlist/p1", nil, authedHeaders())
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/wishlist", nil, deviceHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var items []wishlistItemResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].Product.ID)

	w = f.do(t, http.MethodDelete, "/wishlist/p1", nil, authedHeaders())
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/wishlist", nil, deviceHeaders())
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	assert.Empty(t, items)
}

func TestWishlist_AddUnknownProduct(t *testing.T) {
	f := newFixture(nil, nil)

	w := f.do(t, http.MethodPut, "/wishlist/ghost", nil, authedHeaders())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
