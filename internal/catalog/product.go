// Package catalog defines the canonical product model and the normalization
// pipeline that turns loosely-typed commerce-backend records into it.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the canonical catalog record. Every field is always populated:
// normalization substitutes documented defaults instead of leaving fields
// absent, so downstream consumers never have to nil-check required data.
type Product struct {
	ID          string
	Name        string
	Description string
	// Image is the display image URL, empty when the source record carried
	// neither a thumbnail nor an image list.
	Image string
	// Price is the catalog-card display price in major currency units. Only
	// the first variant's price list is consulted here; per-variant pricing
	// is resolved when a specific variant is selected.
	Price    decimal.Decimal
	Variants []Variant
	Colors   []Color
	Sizes    []string
	// Rating and ReviewCount are nil when the source had none. A nil rating
	// is distinct from a rating of zero.
	Rating      *float64
	ReviewCount *int
	// Discount is the fraction of the original price saved, in [0, 1].
	// Nil when no valid original_price metadata was present.
	Discount *decimal.Decimal
	Category string
	// Tags carries the backend's labels (e.g. "featured") so fallback tiers
	// can replay tag-based queries locally.
	Tags      []string
	CreatedAt time.Time
	// Degraded marks a minimal substitute record produced for a raw record
	// that failed structural decoding. The batch keeps its expected size and
	// the UI can disclose the substitution.
	Degraded bool
}

// Variant is a purchasable configuration of a product with its own price list.
type Variant struct {
	ID     string
	Title  string
	Prices []VariantPrice
}

// VariantPrice is a normalized per-currency price in major units.
type VariantPrice struct {
	Amount   decimal.Decimal
	Currency string
}

// Color pairs a display name with its resolved hex value.
type Color struct {
	Name string
	Hex  string
}

// RawRecord is the untrusted product shape received from the commerce
// backend. Any field may be missing or malformed; Normalize tolerates all of
// it and Degraded covers records that fail structural decoding entirely.
type RawRecord struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Thumbnail   string            `json:"thumbnail"`
	Images      []string          `json:"images"`
	Variants    []RawVariant      `json:"variants"`
	Options     []RawOption       `json:"options"`
	Metadata    map[string]string `json:"metadata"`
	Collection  string            `json:"collection"`
	Tags        []string          `json:"tags"`
	CreatedAt   string            `json:"created_at"`
}

// RawVariant is the untrusted variant shape. Title conventionally follows
// "<Size> / <Color>".
type RawVariant struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Prices []RawPrice `json:"prices"`
}

// RawPrice is an (amount, currency) pair with the amount in minor units.
type RawPrice struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency_code"`
}

// RawOption is a named option group, e.g. Color -> [Black, White].
type RawOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}
