// Package handler exposes the storefront HTTP API: catalog browsing with
// filters, search suggestions, the server-persisted cart, checkout, and the
// payment provider webhook.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cart"
	"github.com/xenking/storefront/internal/commerce"
	"github.com/xenking/storefront/internal/filter"
	"github.com/xenking/storefront/internal/payment"
	"github.com/xenking/storefront/internal/promo"
)

// Fetcher abstracts the catalog fetch orchestrator.
type Fetcher interface {
	FetchCatalog(ctx context.Context, q commerce.Query) (*commerce.Result, error)
}

// IntentCreator abstracts the payment provider client.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// Currency is the checkout currency code, e.g. "usd".
	Currency string
	// WebhookSecret verifies payment provider callbacks.
	WebhookSecret string
}

// Handler wires the storefront API endpoints to their collaborators.
type Handler struct {
	catalog  Fetcher
	history  *filter.History
	rows     cart.Rows
	promos   promo.Validator
	payments IntentCreator
	cfg      Config
}

// New constructs a Handler with the required dependencies. promos and
// payments may be nil, disabling promo codes and checkout respectively.
func New(
	cfg Config,
	catalogFetcher Fetcher,
	history *filter.History,
	rows cart.Rows,
	promos promo.Validator,
	payments IntentCreator,
) *Handler {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Handler{
		catalog:  catalogFetcher,
		history:  history,
		rows:     rows,
		promos:   promos,
		payments: payments,
		cfg:      cfg,
	}
}

// Routes registers all API endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/search/suggestions", h.searchSuggestions)
	mux.HandleFunc("DELETE /api/search/history", h.clearSearchHistory)

	mux.HandleFunc("GET /api/cart/{user}", h.getCart)
	mux.HandleFunc("PUT /api/cart/{user}/items/{product}", h.putCartItem)
	mux.HandleFunc("DELETE /api/cart/{user}/items/{product}", h.deleteCartItem)
	mux.HandleFunc("DELETE /api/cart/{user}", h.clearCart)

	mux.HandleFunc("POST /api/checkout", h.checkout)

	webhook := payment.NewWebhook([]byte(h.cfg.WebhookSecret), h.handlePaymentEvent)
	mux.Handle("POST /webhooks/payment", webhook)
}

// handlePaymentEvent reacts to verified provider callbacks. A completed
// checkout clears the user's server-persisted cart.
func (h *Handler) handlePaymentEvent(ctx context.Context, event payment.Event) error {
	switch event.Type {
	case payment.EventCheckoutCompleted:
		if event.UserID == "" {
			return nil
		}
		return h.rows.Clear(ctx, event.UserID)
	case payment.EventPaymentFailed:
		zctx.From(ctx).Warn("Payment failed",
			zap.String("intent_id", event.IntentID), zap.String("user_id", event.UserID))
		return nil
	default:
		return nil
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
