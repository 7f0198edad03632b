package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/catalog"
)

func testCatalog() []catalog.Product {
	reviews := func(n int) *int { return &n }
	return []catalog.Product{
		{
			ID:          "p1",
			Name:        "Classic Tee",
			Description: "Cotton t-shirt",
			Price:       decimal.RequireFromString("25"),
			Category:    "Apparel",
			Sizes:       []string{"S", "M"},
			Colors:      []catalog.Color{{Name: "Black", Hex: "#000000"}},
			CreatedAt:   time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			ReviewCount: reviews(120),
		},
		{
			ID:          "p2",
			Name:        "Fleece Hoodie",
			Description: "Warm pullover hoodie",
			Price:       decimal.RequireFromString("59"),
			Category:    "Apparel",
			Sizes:       []string{"M", "L"},
			Colors:      []catalog.Color{{Name: "Gray", Hex: "#808080"}},
			CreatedAt:   time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			ReviewCount: reviews(340),
		},
		{
			ID:          "p3",
			Name:        "Canvas Tote",
			Description: "Everyday bag",
			Price:       decimal.RequireFromString("34"),
			Category:    "Accessories",
			Colors:      []catalog.Color{{Name: "Brown", Hex: "#A52A2A"}},
			CreatedAt:   time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func ids(products []catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestApply_ZeroStateKeepsInputOrder(t *testing.T) {
	products := testCatalog()
	got := Apply(products, State{})
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids(got))
}

func TestApply_Predicates(t *testing.T) {
	products := testCatalog()

	tests := []struct {
		name  string
		state State
		want  []string
	}{
		{
			name:  "category is case-insensitive",
			state: State{Category: "apparel"},
			want:  []string{"p1", "p2"},
		},
		{
			name:  "size toggle",
			state: State{Sizes: []string{"L"}},
			want:  []string{"p2"},
		},
		{
			name:  "color toggle",
			state: State{Colors: []string{"brown"}},
			want:  []string{"p3"},
		},
		{
			name: "price range is inclusive",
			state: State{Price: &PriceRange{
				Min: decimal.RequireFromString("25"),
				Max: decimal.RequireFromString("34"),
			}},
			want: []string{"p1", "p3"},
		},
		{
			name:  "query matches name",
			state: State{AppliedQuery: "tee"},
			want:  []string{"p1"},
		},
		{
			name:  "query matches description",
			state: State{AppliedQuery: "pullover"},
			want:  []string{"p2"},
		},
		{
			name:  "raw query alone does not filter until applied",
			state: State{Query: "tee"},
			want:  []string{"p1", "p2", "p3"},
		},
		{
			name:  "combined predicates intersect",
			state: State{Category: "Apparel", Sizes: []string{"M"}, AppliedQuery: "hoodie"},
			want:  []string{"p2"},
		},
		{
			name:  "no match yields empty set",
			state: State{AppliedQuery: "nonexistent"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(products, tt.state)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_SubsetAndIdempotent(t *testing.T) {
	products := testCatalog()
	state := State{Category: "Apparel", Sort: SortPriceDesc}

	first := Apply(products, state)
	second := Apply(products, state)

	assert.Equal(t, ids(first), ids(second), "re-applying the same state must be idempotent")

	inInput := make(map[string]bool, len(products))
	for _, p := range products {
		inInput[p.ID] = true
	}
	for _, p := range first {
		assert.True(t, inInput[p.ID], "visible set must be a subset of the snapshot")
	}
}

func TestApply_Sorting(t *testing.T) {
	products := testCatalog()

	tests := []struct {
		name string
		key  SortKey
		want []string
	}{
		{"newest first", SortNewest, []string{"p2", "p1", "p3"}},
		{"price ascending", SortPriceAsc, []string{"p1", "p3", "p2"}},
		{"price descending", SortPriceDesc, []string{"p2", "p3", "p1"}},
		{"popularity by review count", SortPopularity, []string{"p2", "p1", "p3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(products, State{Sort: tt.key})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_SortIsStable(t *testing.T) {
	// Two products with equal price keep their input order.
	products := []catalog.Product{
		{ID: "a", Price: decimal.RequireFromString("10")},
		{ID: "b", Price: decimal.RequireFromString("10")},
		{ID: "c", Price: decimal.RequireFromString("5")},
	}

	got := Apply(products, State{Sort: SortPriceAsc})
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
}

func TestState_ClampPrice(t *testing.T) {
	maxPrice := decimal.RequireFromString("100")

	t.Run("nil range is untouched", func(t *testing.T) {
		s := State{}
		s.ClampPrice(maxPrice)
		assert.Nil(t, s.Price)
	})

	t.Run("bounds clamp into [0, maxPrice]", func(t *testing.T) {
		s := State{Price: &PriceRange{
			Min: decimal.RequireFromString("-5"),
			Max: decimal.RequireFromString("250"),
		}}
		s.ClampPrice(maxPrice)
		require.NotNil(t, s.Price)
		assert.True(t, s.Price.Min.IsZero())
		assert.True(t, maxPrice.Equal(s.Price.Max))
	})

	t.Run("reversed bounds swap", func(t *testing.T) {
		s := State{Price: &PriceRange{
			Min: decimal.RequireFromString("80"),
			Max: decimal.RequireFromString("20"),
		}}
		s.ClampPrice(maxPrice)
		require.NotNil(t, s.Price)
		assert.True(t, s.Price.Min.LessThanOrEqual(s.Price.Max))
		assert.True(t, decimal.RequireFromString("20").Equal(s.Price.Min))
	})
}
