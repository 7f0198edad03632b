package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cart"
)

type cartItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartResponse struct {
	UserID    string             `json:"user_id"`
	Items     []cartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
}

// getCart returns the user's server-persisted cart rows.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	rows, err := h.rows.List(r.Context(), userID)
	if err != nil {
		zctx.From(r.Context()).Error("Listing cart failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cart unavailable")
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(userID, rows))
}

type putCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// putCartItem sets the quantity for one cart line. A quantity of zero
// removes the line; negative quantities are rejected.
func (h *Handler) putCartItem(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	productID := r.PathValue("product")

	var req putCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusUnprocessableEntity, "quantity must not be negative")
		return
	}

	var err error
	if req.Quantity == 0 {
		err = h.rows.Delete(r.Context(), userID, productID)
	} else {
		err = h.rows.Upsert(r.Context(), userID, productID, req.Quantity)
	}
	if err != nil {
		zctx.From(r.Context()).Error("Updating cart failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cart update failed")
		return
	}

	h.respondCart(w, r, userID)
}

func (h *Handler) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	productID := r.PathValue("product")

	if err := h.rows.Delete(r.Context(), userID, productID); err != nil {
		zctx.From(r.Context()).Error("Deleting cart item failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cart update failed")
		return
	}

	h.respondCart(w, r, userID)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	if err := h.rows.Clear(r.Context(), userID); err != nil {
		zctx.From(r.Context()).Error("Clearing cart failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cart update failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, userID string) {
	rows, err := h.rows.List(r.Context(), userID)
	if err != nil {
		zctx.From(r.Context()).Error("Listing cart failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "cart unavailable")
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(userID, rows))
}

func toCartResponse(userID string, rows []cart.Row) cartResponse {
	items := lo.Map(rows, func(row cart.Row, _ int) cartItemResponse {
		return cartItemResponse{ProductID: row.ProductID, Quantity: row.Quantity}
	})
	return cartResponse{
		UserID: userID,
		Items:  items,
		ItemCount: lo.SumBy(rows, func(row cart.Row) int {
			return row.Quantity
		}),
	}
}
