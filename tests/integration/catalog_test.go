//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"testing"
)

func TestCatalog_ServedFromMirror(t *testing.T) {
	resp := doGet(t, "/api/products?limit=100")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	catalog := decodeJSON[catalogResponse](t, resp)
	if catalog.Source != "mirror" {
		t.Fatalf("expected mirror source (commerce backend is down), got %q", catalog.Source)
	}
	if len(catalog.Products) != 8 {
		t.Fatalf("expected 8 products, got %d", len(catalog.Products))
	}

	for _, p := range catalog.Products {
		if p.ID == "" {
			t.Error("product with empty id")
		}
		if p.Category == "" {
			t.Errorf("product %s with empty category", p.ID)
		}
		if p.Degraded {
			t.Errorf("product %s served degraded from the mirror", p.ID)
		}
	}
}

func TestCatalog_CategoryFilter(t *testing.T) {
	resp := doGet(t, "/api/products?limit=100&category=Footwear")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	catalog := decodeJSON[catalogResponse](t, resp)
	if len(catalog.Products) == 0 {
		t.Fatal("expected at least one Footwear product")
	}
	for _, p := range catalog.Products {
		if p.Category != "Footwear" {
			t.Errorf("product %s has category %q, want Footwear", p.ID, p.Category)
		}
	}
}

func TestCatalog_PriceRangeAndSort(t *testing.T) {
	resp := doGet(t, "/api/products?limit=100&price_max=30&sort=price_asc")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	catalog := decodeJSON[catalogResponse](t, resp)
	if len(catalog.Products) == 0 {
		t.Fatal("expected products under the price cap")
	}

	prev := -1.0
	for _, p := range catalog.Products {
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			t.Fatalf("unparsable price %q: %v", p.Price, err)
		}
		if price > 30 {
			t.Errorf("product %s priced %s above the cap", p.ID, p.Price)
		}
		if price < prev {
			t.Errorf("products not sorted by price ascending: %f before %f", prev, price)
		}
		prev = price
	}
}

func TestCatalog_InvalidPriceParam(t *testing.T) {
	resp := doGet(t, "/api/products?price_min=abc")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearch_SuggestionsFromHistory(t *testing.T) {
	// Searching records the term in the recent-search history.
	resp := doGet(t, "/api/products?q=sneaker")
	resp.Body.Close()

	resp = doGet(t, "/api/search/suggestions?q=sneaker")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got := decodeJSON[suggestionsResponse](t, resp)
	found := false
	for _, s := range got.Suggestions {
		if s == "sneaker" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in suggestions, got %v", "sneaker", got.Suggestions)
	}
}
