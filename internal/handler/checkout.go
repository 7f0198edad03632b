package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cart"
	"github.com/xenking/storefront/internal/commerce"
	"github.com/xenking/storefront/internal/payment"
	"github.com/xenking/storefront/internal/promo"
)

// checkoutCatalogLimit bounds the price-lookup fetch during checkout.
const checkoutCatalogLimit = 100

type checkoutItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type checkoutRequest struct {
	UserID    string         `json:"user_id"`
	Items     []checkoutItem `json:"items"`
	PromoCode string         `json:"promo_code,omitempty"`
}

type checkoutResponse struct {
	ClientSecret string `json:"client_secret"`
	Subtotal     string `json:"subtotal"`
	Discount     string `json:"discount"`
	Total        string `json:"total"`
	Currency     string `json:"currency"`
}

// checkout prices the cart against the current catalog, applies an optional
// promo code, and creates a payment intent. Unlike catalog browsing, nothing
// here degrades silently: pricing and payment failures are surfaced.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.payments == nil {
		respondError(w, http.StatusNotImplemented, "checkout is not configured")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	items := req.Items
	if len(items) == 0 && req.UserID != "" {
		rows, err := h.rows.List(ctx, req.UserID)
		if err != nil {
			zctx.From(ctx).Error("Listing cart for checkout failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "cart unavailable")
			return
		}
		for _, row := range rows {
			items = append(items, checkoutItem{ID: row.ProductID, Quantity: row.Quantity})
		}
	}
	if len(items) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "cart is empty")
		return
	}

	prices, err := h.lookupPrices(ctx)
	if err != nil {
		zctx.From(ctx).Error("Price lookup failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "pricing unavailable")
		return
	}

	store := cart.NewStore()
	for _, item := range items {
		if _, ok := prices[item.ID]; !ok {
			respondError(w, http.StatusUnprocessableEntity, "unknown product: "+item.ID)
			return
		}
		store.SetQuantity(item.ID, item.Quantity)
	}
	if store.ItemCount() == 0 {
		respondError(w, http.StatusUnprocessableEntity, "cart is empty")
		return
	}

	subtotal := store.Subtotal(func(id string) (decimal.Decimal, bool) {
		p, ok := prices[id]
		return p, ok
	})

	discount := decimal.Zero
	if req.PromoCode != "" {
		if h.promos == nil {
			respondError(w, http.StatusUnprocessableEntity, "promo codes are not supported")
			return
		}
		d, err := h.promos.Validate(ctx, req.PromoCode, subtotal)
		if err != nil {
			if errors.Is(err, promo.ErrInvalidPromo) {
				respondError(w, http.StatusUnprocessableEntity, "invalid promo code")
				return
			}
			zctx.From(ctx).Error("Promo validation failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "promo validation failed")
			return
		}
		discount = d.Amount
	}

	total := subtotal.Sub(discount)
	minorUnits := total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	intent, err := h.payments.CreateIntent(ctx, payment.IntentRequest{
		Amount:      minorUnits,
		Currency:    h.cfg.Currency,
		Description: "storefront order",
		Metadata:    map[string]string{"user_id": req.UserID},
	})
	if err != nil {
		var provErr *payment.ProviderError
		if errors.As(err, &provErr) {
			// The provider's own message goes to the user unchanged.
			respondError(w, http.StatusPaymentRequired, provErr.Message)
			return
		}
		zctx.From(ctx).Error("Creating payment intent failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	respondJSON(w, http.StatusOK, checkoutResponse{
		ClientSecret: intent.ClientSecret,
		Subtotal:     money(subtotal),
		Discount:     money(discount),
		Total:        money(total),
		Currency:     h.cfg.Currency,
	})
}

// lookupPrices builds a unit-price index over the current catalog, covering
// both product ids and variant ids.
func (h *Handler) lookupPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	result, err := h.catalog.FetchCatalog(ctx, commerce.Query{Limit: checkoutCatalogLimit})
	if err != nil {
		return nil, errors.Wrap(err, "fetch catalog")
	}
	if result.Source == commerce.SourceSample {
		// Sample data is a browsing placeholder, not a price list. The
		// mirror holds real (if stale) backend prices; the sample tier does
		// not, so charging against it is refused outright.
		return nil, errors.New("catalog unavailable, not pricing from sample data")
	}

	prices := make(map[string]decimal.Decimal, len(result.Products))
	for _, p := range result.Products {
		if p.Degraded {
			// A degraded record has no trustworthy price.
			continue
		}
		prices[p.ID] = p.Price
		for _, v := range p.Variants {
			for _, vp := range v.Prices {
				if strings.EqualFold(vp.Currency, h.cfg.Currency) {
					prices[v.ID] = vp.Amount
					break
				}
			}
		}
	}
	return prices, nil
}
