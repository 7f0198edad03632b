// Package filter implements the client-side catalog filtering and search
// engine: a pure membership/ordering computation over a normalized catalog
// snapshot, plus debounced free-text input and recent-search history.
package filter

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/catalog"
)

// SortKey selects the ordering of visible products.
type SortKey string

const (
	// SortNewest orders by creation timestamp, most recent first.
	SortNewest SortKey = "newest"
	// SortPriceAsc orders by display price, cheapest first.
	SortPriceAsc SortKey = "price_asc"
	// SortPriceDesc orders by display price, most expensive first.
	SortPriceDesc SortKey = "price_desc"
	// SortPopularity orders by review count as a popularity proxy.
	SortPopularity SortKey = "popularity"
)

// PriceRange bounds the visible display price, inclusive on both ends.
type PriceRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// State is the mutable filter state owned by a page session. The zero value
// matches everything in input order.
type State struct {
	Sort     SortKey
	Category string
	Sizes    []string
	Colors   []string
	Price    *PriceRange
	// Query is the raw free-text input as typed. AppliedQuery is the
	// debounced value actually used for matching; Session promotes Query to
	// AppliedQuery after the debounce delay.
	Query        string
	AppliedQuery string
}

// ClampPrice enforces the price range invariants: both bounds within
// [0, maxPrice] and min <= max (swapped when reversed).
func (s *State) ClampPrice(maxPrice decimal.Decimal) {
	if s.Price == nil {
		return
	}

	clamp := func(d decimal.Decimal) decimal.Decimal {
		if d.IsNegative() {
			return decimal.Zero
		}
		if d.GreaterThan(maxPrice) {
			return maxPrice
		}
		return d
	}

	r := PriceRange{Min: clamp(s.Price.Min), Max: clamp(s.Price.Max)}
	if r.Min.GreaterThan(r.Max) {
		r.Min, r.Max = r.Max, r.Min
	}
	s.Price = &r
}

// Apply computes the visible subset and ordering for the given snapshot and
// state. It is pure and deterministic: the result is always a subset of the
// input, re-applying the same state yields identical output, and sorting is
// stable with input order as the tie-break.
func Apply(products []catalog.Product, s State) []catalog.Product {
	visible := lo.Filter(products, func(p catalog.Product, _ int) bool {
		return matches(p, s)
	})

	sortProducts(visible, s.Sort)
	return visible
}

func matches(p catalog.Product, s State) bool {
	if s.Category != "" && !strings.EqualFold(p.Category, s.Category) {
		return false
	}
	if len(s.Sizes) > 0 && !intersectsFold(p.Sizes, s.Sizes) {
		return false
	}
	if len(s.Colors) > 0 {
		names := lo.Map(p.Colors, func(c catalog.Color, _ int) string { return c.Name })
		if !intersectsFold(names, s.Colors) {
			return false
		}
	}
	if s.Price != nil {
		if p.Price.LessThan(s.Price.Min) || p.Price.GreaterThan(s.Price.Max) {
			return false
		}
	}
	if q := strings.TrimSpace(s.AppliedQuery); q != "" && !matchesQuery(p, q) {
		return false
	}
	return true
}

// matchesQuery is a case-insensitive substring match against name OR
// description.
func matchesQuery(p catalog.Product, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

func intersectsFold(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func sortProducts(products []catalog.Product, key SortKey) {
	switch key {
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.LessThan(products[j].Price)
		})
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price.GreaterThan(products[j].Price)
		})
	case SortPopularity:
		sort.SliceStable(products, func(i, j int) bool {
			return reviewCount(products[i]) > reviewCount(products[j])
		})
	default:
		// Unknown or empty key keeps input order.
	}
}

func reviewCount(p catalog.Product) int {
	if p.ReviewCount == nil {
		return 0
	}
	return *p.ReviewCount
}
