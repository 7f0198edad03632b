package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/cart"
	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/commerce"
	"github.com/xenking/storefront/internal/filter"
	"github.com/xenking/storefront/internal/payment"
	"github.com/xenking/storefront/internal/promo"
	"github.com/xenking/storefront/internal/storage/kv"
)

// --- Mock implementations ---

type mockFetcher struct {
	result *commerce.Result
	err    error
	lastQ  commerce.Query
}

func (m *mockFetcher) FetchCatalog(_ context.Context, q commerce.Query) (*commerce.Result, error) {
	m.lastQ = q
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockPayments struct {
	intent  *payment.Intent
	err     error
	lastReq payment.IntentRequest
}

func (m *mockPayments) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.intent, nil
}

// --- Helpers ---

func newTestProduct(id, name string, price string, category string) catalog.Product {
	return catalog.Product{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  category,
		CreatedAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
	}
}

type testDeps struct {
	fetcher  *mockFetcher
	payments *mockPayments
	rows     *cart.MemoryRows
	store    *kv.Memory
}

func newTestHandler(t *testing.T, products ...catalog.Product) (*http.ServeMux, *testDeps) {
	t.Helper()

	deps := &testDeps{
		fetcher: &mockFetcher{result: &commerce.Result{
			Products: products,
			Source:   commerce.SourceLive,
		}},
		payments: &mockPayments{intent: &payment.Intent{ClientSecret: "pi_test_secret"}},
		rows:     cart.NewMemoryRows(),
		store:    kv.NewMemory(),
	}

	h := New(
		Config{Currency: "usd", WebhookSecret: "whsec_test"},
		deps.fetcher,
		filter.NewHistory(deps.store),
		deps.rows,
		promo.NewRepoValidator(promo.NewMemoryRepository(
			promo.Rule{Code: "SAVE10", Kind: promo.KindPercentage, Value: decimal.RequireFromString("10"), Description: "10% off"},
		)),
		deps.payments,
	)

	mux := http.NewServeMux()
	h.Routes(mux)
	return mux, deps
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	mux, deps := newTestHandler(t,
		newTestProduct("p1", "Classic Tee", "25", "Apparel"),
		newTestProduct("p2", "Canvas Tote", "34", "Accessories"),
	)

	rec, body := doJSON(t, mux, http.MethodGet, "/api/products?category=Apparel&limit=12", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "live", body["source"])
	products := body["products"].([]any)
	assert.Len(t, products, 2, "backend-filter params go out with the fetch, not locally")
	assert.Equal(t, "Apparel", deps.fetcher.lastQ.Category)
	assert.Equal(t, 12, deps.fetcher.lastQ.Limit)
}

func TestListProducts_LocalFilters(t *testing.T) {
	p1 := newTestProduct("p1", "Classic Tee", "25", "Apparel")
	p1.Sizes = []string{"S", "M"}
	p2 := newTestProduct("p2", "Fleece Hoodie", "59", "Apparel")
	p2.Sizes = []string{"L"}

	mux, _ := newTestHandler(t, p1, p2)

	rec, body := doJSON(t, mux, http.MethodGet, "/api/products?sizes=M&price_max=30", "")
	require.Equal(t, http.StatusOK, rec.Code)

	products := body["products"].([]any)
	require.Len(t, products, 1)
	first := products[0].(map[string]any)
	assert.Equal(t, "p1", first["id"])
	assert.Equal(t, "25.00", first["price"])
}

func TestListProducts_InvalidPriceParam(t *testing.T) {
	mux, _ := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))

	rec, _ := doJSON(t, mux, http.MethodGet, "/api/products?price_min=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts_SearchRecordedInHistory(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Classic Tee", "25", "Apparel"))

	rec, _ := doJSON(t, mux, http.MethodGet, "/api/products?q=shoes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shoes", deps.fetcher.lastQ.Search)

	history := filter.NewHistory(deps.store)
	assert.Equal(t, []string{"shoes"}, history.List(context.Background()))
}

func TestSearchSuggestions(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))

	history := filter.NewHistory(deps.store)
	require.NoError(t, history.Add(context.Background(), "running shoes"))
	require.NoError(t, history.Add(context.Background(), "rain jacket"))

	rec, body := doJSON(t, mux, http.MethodGet, "/api/search/suggestions?q=shoes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	suggestions := body["suggestions"].([]any)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "running shoes", suggestions[0])
}

func TestCartEndpoints(t *testing.T) {
	mux, _ := newTestHandler(t)

	rec, body := doJSON(t, mux, http.MethodPut, "/api/cart/u1/items/p1", `{"quantity": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), body["item_count"])

	// Quantity zero removes the line.
	rec, body = doJSON(t, mux, http.MethodPut, "/api/cart/u1/items/p1", `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["items"])

	// Negative quantities are rejected.
	rec, _ = doJSON(t, mux, http.MethodPut, "/api/cart/u1/items/p1", `{"quantity": -2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, body = doJSON(t, mux, http.MethodGet, "/api/cart/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["item_count"])
}

func TestCheckout(t *testing.T) {
	mux, deps := newTestHandler(t,
		newTestProduct("p1", "Classic Tee", "25", "Apparel"),
		newTestProduct("p2", "Canvas Tote", "34.50", "Accessories"),
	)

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"user_id": "u1", "items": [{"id": "p1", "quantity": 2}, {"id": "p2", "quantity": 1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %v", body)

	assert.Equal(t, "pi_test_secret", body["client_secret"])
	assert.Equal(t, "84.50", body["subtotal"])
	assert.Equal(t, "84.50", body["total"])
	assert.Equal(t, int64(8450), deps.payments.lastReq.Amount, "amount goes to the provider in minor units")
	assert.Equal(t, "usd", deps.payments.lastReq.Currency)
}

func TestCheckout_PromoApplied(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Classic Tee", "100", "Apparel"))

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"user_id": "u1", "items": [{"id": "p1", "quantity": 1}], "promo_code": "SAVE10"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "10.00", body["discount"])
	assert.Equal(t, "90.00", body["total"])
	assert.Equal(t, int64(9000), deps.payments.lastReq.Amount)
}

func TestCheckout_InvalidPromo(t *testing.T) {
	mux, _ := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"items": [{"id": "p1", "quantity": 1}], "promo_code": "NOPE"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid promo code", body["error"])
}

func TestCheckout_ProviderErrorSurfaced(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))
	deps.payments.err = &payment.ProviderError{Status: http.StatusPaymentRequired, Message: "Your card was declined."}

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"items": [{"id": "p1", "quantity": 1}]}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "Your card was declined.", body["error"], "provider message shown verbatim, never masked")
}

func TestCheckout_RefusesSampleCatalogPricing(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))
	deps.fetcher.result.Source = commerce.SourceSample

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"items": [{"id": "p1", "quantity": 1}]}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "pricing unavailable", body["error"])
	assert.Zero(t, deps.payments.lastReq.Amount, "no intent may be created against sample prices")
}

func TestCheckout_MirrorCatalogStillPrices(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))
	deps.fetcher.result.Source = commerce.SourceMirror

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"items": [{"id": "p1", "quantity": 1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %v", body)
	assert.Equal(t, "25.00", body["subtotal"])
}

func TestCheckout_VariantCurrencyFoldsCase(t *testing.T) {
	p := newTestProduct("p1", "Tee", "25", "Apparel")
	p.Variants = []catalog.Variant{{
		ID: "v1",
		Prices: []catalog.VariantPrice{
			{Amount: decimal.RequireFromString("50"), Currency: "EUR"},
			{Amount: decimal.RequireFromString("20"), Currency: "USD"},
		},
	}}
	mux, deps := newTestHandler(t, p)

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"items": [{"id": "v1", "quantity": 1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, "body: %v", body)
	assert.Equal(t, "20.00", body["subtotal"])
	assert.Equal(t, int64(2000), deps.payments.lastReq.Amount)
}

func TestCheckout_UnknownProduct(t *testing.T) {
	mux, _ := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))

	rec, _ := doJSON(t, mux, http.MethodPost, "/api/checkout",
		`{"items": [{"id": "ghost", "quantity": 1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckout_UsesPersistedCartWhenNoItemsGiven(t *testing.T) {
	mux, deps := newTestHandler(t, newTestProduct("p1", "Tee", "25", "Apparel"))
	require.NoError(t, deps.rows.Upsert(context.Background(), "u1", "p1", 2))

	rec, body := doJSON(t, mux, http.MethodPost, "/api/checkout", `{"user_id": "u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50.00", body["subtotal"])
}

func TestWebhook_CheckoutCompletedClearsCart(t *testing.T) {
	mux, deps := newTestHandler(t)
	require.NoError(t, deps.rows.Upsert(context.Background(), "u1", "p1", 2))

	payload := `{"type": "checkout.completed", "user_id": "u1"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set(payment.SignatureHeader, payment.Sign([]byte("whsec_test"), []byte(payload)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	rows, err := deps.rows.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	mux, deps := newTestHandler(t)
	require.NoError(t, deps.rows.Upsert(context.Background(), "u1", "p1", 2))

	payload := `{"type": "checkout.completed", "user_id": "u1"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(payload))
	req.Header.Set(payment.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	rows, err := deps.rows.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "an unverified event must not mutate state")
}
