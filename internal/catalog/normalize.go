package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DefaultCategory labels records whose source carried no grouping title.
const DefaultCategory = "Uncategorized"

// Normalize converts one raw backend record into the canonical product shape.
// It is a total function: any field-level extraction failure substitutes the
// documented default for that field, never aborting the record.
func Normalize(raw RawRecord, preferredCurrency string) Product {
	p := Product{
		ID:          raw.ID,
		Name:        raw.Title,
		Description: raw.Description,
		Image:       displayImage(raw),
		Variants:    normalizeVariants(raw.Variants),
		Colors:      optionColors(raw.Options),
		Sizes:       optionValues(raw.Options, "size", "sizes"),
		Category:    raw.Collection,
		Tags:        normalizeTags(raw.Tags),
		CreatedAt:   parseTimestamp(raw.CreatedAt),
	}

	if len(raw.Variants) > 0 {
		p.Price = DisplayPrice(raw.Variants[0].Prices, preferredCurrency)
	} else {
		p.Price = decimal.Zero
	}

	if p.Category == "" {
		p.Category = DefaultCategory
	}

	p.Discount = discountFraction(p.Price, raw.Metadata["original_price"])
	p.Rating = parseRating(raw.Metadata["rating"])
	p.ReviewCount = parseReviewCount(raw.Metadata["review_count"])

	return p
}

// Degraded builds the minimal substitute for a raw record that failed
// structural decoding: identifier and title survive, price is zero, the
// batch keeps its expected size.
func Degraded(id, title string) Product {
	return Product{
		ID:       id,
		Name:     title,
		Price:    decimal.Zero,
		Category: DefaultCategory,
		Degraded: true,
	}
}

func displayImage(raw RawRecord) string {
	if raw.Thumbnail != "" {
		return raw.Thumbnail
	}
	if len(raw.Images) > 0 {
		return raw.Images[0]
	}
	return ""
}

func normalizeVariants(raw []RawVariant) []Variant {
	return lo.Map(raw, func(v RawVariant, _ int) Variant {
		return Variant{
			ID:    v.ID,
			Title: v.Title,
			Prices: lo.Map(v.Prices, func(p RawPrice, _ int) VariantPrice {
				return VariantPrice{
					Amount:   decimal.NewFromInt(p.Amount).Div(divisor),
					Currency: strings.ToLower(p.Currency),
				}
			}),
		}
	})
}

// optionColors maps the "color"/"colours" option group through the color
// table, deduplicated by name.
func optionColors(options []RawOption) []Color {
	values := optionValues(options, "color", "colours")
	colors := lo.Map(values, func(name string, _ int) Color {
		return Color{Name: name, Hex: ColorHex(name)}
	})
	return lo.UniqBy(colors, func(c Color) string { return strings.ToLower(c.Name) })
}

// normalizeTags trims, drops blanks, and deduplicates case-insensitively,
// keeping the first spelling seen.
func normalizeTags(raw []string) []string {
	trimmed := lo.FilterMap(raw, func(t string, _ int) (string, bool) {
		t = strings.TrimSpace(t)
		return t, t != ""
	})
	return lo.UniqBy(trimmed, strings.ToLower)
}

// optionValues returns the values of the first option group whose name
// matches any of the given names case-insensitively.
func optionValues(options []RawOption, names ...string) []string {
	for _, opt := range options {
		for _, name := range names {
			if strings.EqualFold(opt.Name, name) {
				return lo.Filter(opt.Values, func(v string, _ int) bool { return v != "" })
			}
		}
	}
	return nil
}

// discountFraction computes round(1 - price/original, 2) from the
// original_price metadata value. A missing, unparsable, or non-positive
// original price yields no discount, as does an original below the current
// price. The zero-original case is clamped to "no discount" rather than
// dividing by zero.
func discountFraction(price decimal.Decimal, original string) *decimal.Decimal {
	if original == "" {
		return nil
	}
	orig, err := decimal.NewFromString(strings.TrimSpace(original))
	if err != nil || !orig.IsPositive() {
		return nil
	}

	d := decimal.NewFromInt(1).Sub(price.Div(orig)).Round(2)
	if d.IsNegative() || d.IsZero() {
		return nil
	}
	return &d
}

// parseRating parses a 0-5 scale rating, clamping out-of-range values.
// Absence and unparsable input both yield nil, which is distinct from a
// rating of zero.
func parseRating(s string) *float64 {
	if s == "" {
		return nil
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return &r
}

func parseReviewCount(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// parseTimestamp accepts RFC 3339 timestamps, falling back to the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
