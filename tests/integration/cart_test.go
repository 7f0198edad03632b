//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type putItemRequest struct {
	Quantity int `json:"quantity"`
}

func TestCart_Flow(t *testing.T) {
	user := "/api/cart/it-user-1"

	resp := doJSON(t, http.MethodPut, user+"/items/sample-tee-01", putItemRequest{Quantity: 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put item: expected 200, got %d", resp.StatusCode)
	}
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.ItemCount != 3 {
		t.Fatalf("expected item_count 3, got %d", cart.ItemCount)
	}

	// Setting quantity to zero removes the row.
	resp = doJSON(t, http.MethodPut, user+"/items/sample-tee-01", putItemRequest{Quantity: 0})
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart after zero quantity, got %d items", len(cart.Items))
	}

	// Negative quantities are rejected.
	resp = doJSON(t, http.MethodPut, user+"/items/sample-tee-01", putItemRequest{Quantity: -1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for negative quantity, got %d", resp.StatusCode)
	}

	// Upsert replaces on the composite key instead of duplicating.
	resp = doJSON(t, http.MethodPut, user+"/items/sample-cap-01", putItemRequest{Quantity: 1})
	resp.Body.Close()
	resp = doJSON(t, http.MethodPut, user+"/items/sample-cap-01", putItemRequest{Quantity: 5})
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected one row with quantity 5, got %+v", cart.Items)
	}

	resp = doJSON(t, http.MethodDelete, user, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear cart: expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, user)
	cart = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if cart.ItemCount != 0 {
		t.Fatalf("expected empty cart after clear, got %d", cart.ItemCount)
	}
}

func TestCart_IsolatedPerUser(t *testing.T) {
	resp := doJSON(t, http.MethodPut, "/api/cart/it-user-a/items/sample-tote-01", putItemRequest{Quantity: 2})
	resp.Body.Close()

	resp = doGet(t, "/api/cart/it-user-b")
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	if cart.ItemCount != 0 {
		t.Fatalf("user b sees user a's cart: %+v", cart.Items)
	}

	resp = doJSON(t, http.MethodDelete, "/api/cart/it-user-a", nil)
	resp.Body.Close()
}

func TestCheckout_NotConfigured(t *testing.T) {
	// The compose environment has no payment provider, so checkout reports
	// itself disabled rather than failing obscurely.
	resp := doJSON(t, http.MethodPost, "/api/checkout", map[string]any{
		"items": []map[string]any{{"id": "sample-tee-01", "quantity": 1}},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Error == "" {
		t.Error("expected an error message")
	}
}
