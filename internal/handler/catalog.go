package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/commerce"
	"github.com/xenking/storefront/internal/filter"
)

// productResponse is the wire shape of one catalog product.
type productResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image,omitempty"`
	Price       string            `json:"price"`
	Variants    []variantResponse `json:"variants"`
	Colors      []colorResponse   `json:"colors"`
	Sizes       []string          `json:"sizes"`
	Rating      *float64          `json:"rating,omitempty"`
	ReviewCount *int              `json:"review_count,omitempty"`
	Discount    *string           `json:"discount,omitempty"`
	Category    string            `json:"category"`
	Degraded    bool              `json:"degraded,omitempty"`
}

type variantResponse struct {
	ID     string          `json:"id"`
	Title  string          `json:"title,omitempty"`
	Prices []priceResponse `json:"prices"`
}

type priceResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency_code"`
}

type colorResponse struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// catalogResponse discloses the provenance of the data alongside the
// products, so a client can surface a degraded-data banner.
type catalogResponse struct {
	Products []productResponse `json:"products"`
	Source   string            `json:"source"`
}

// listProducts serves the filtered catalog. Backend-supported filters
// (category, featured, q, limit) go out with the fetch; the remaining ones
// (sizes, colors, price range, sort) are applied locally to the normalized
// snapshot.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	q := parseQuery(params)
	result, err := h.catalog.FetchCatalog(ctx, q)
	if err != nil {
		zctx.From(ctx).Error("Catalog fetch failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	state, err := parseFilterState(params)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	visible := filter.Apply(result.Products, state)

	if h.history != nil && q.Search != "" {
		if err := h.history.Add(ctx, q.Search); err != nil {
			zctx.From(ctx).Warn("Recording search term failed", zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, catalogResponse{
		Products: lo.Map(visible, func(p catalog.Product, _ int) productResponse {
			return toProductResponse(p)
		}),
		Source: string(result.Source),
	})
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// searchSuggestions ranks the recent-search history against the partial
// input.
func (h *Handler) searchSuggestions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondJSON(w, http.StatusOK, suggestionsResponse{Suggestions: []string{}})
		return
	}

	got := h.history.Suggest(r.Context(), r.URL.Query().Get("q"))
	if got == nil {
		got = []string{}
	}
	respondJSON(w, http.StatusOK, suggestionsResponse{Suggestions: got})
}

func (h *Handler) clearSearchHistory(w http.ResponseWriter, r *http.Request) {
	if h.history != nil {
		if err := h.history.Clear(r.Context()); err != nil {
			respondError(w, http.StatusInternalServerError, "clear history")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseQuery(params map[string][]string) commerce.Query {
	get := func(key string) string {
		if v, ok := params[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	limit, _ := strconv.Atoi(get("limit"))
	return commerce.Query{
		Limit:    limit,
		Category: get("category"),
		Featured: get("featured") == "true",
		Search:   strings.TrimSpace(get("q")),
	}
}

// parseFilterState reads the locally applied filter parameters. The free-text
// query is applied immediately here: debouncing is a client-interaction
// concern that does not exist for a single stateless request.
func parseFilterState(params map[string][]string) (filter.State, error) {
	get := func(key string) string {
		if v, ok := params[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	state := filter.State{
		Sort:   filter.SortKey(get("sort")),
		Sizes:  splitList(get("sizes")),
		Colors: splitList(get("colors")),
	}

	minRaw, maxRaw := get("price_min"), get("price_max")
	if minRaw != "" || maxRaw != "" {
		pr := &filter.PriceRange{Min: decimal.Zero, Max: decimal.New(1<<40, 0)}
		if minRaw != "" {
			min, err := decimal.NewFromString(minRaw)
			if err != nil {
				return filter.State{}, errors.New("invalid price_min")
			}
			pr.Min = min
		}
		if maxRaw != "" {
			max, err := decimal.NewFromString(maxRaw)
			if err != nil {
				return filter.State{}, errors.New("invalid price_max")
			}
			pr.Max = max
		}
		state.Price = pr
	}

	return state, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func toProductResponse(p catalog.Product) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Price:       money(p.Price),
		Sizes:       p.Sizes,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Category:    p.Category,
		Degraded:    p.Degraded,
		Variants: lo.Map(p.Variants, func(v catalog.Variant, _ int) variantResponse {
			return variantResponse{
				ID:    v.ID,
				Title: v.Title,
				Prices: lo.Map(v.Prices, func(vp catalog.VariantPrice, _ int) priceResponse {
					return priceResponse{Amount: money(vp.Amount), Currency: vp.Currency}
				}),
			}
		}),
		Colors: lo.Map(p.Colors, func(c catalog.Color, _ int) colorResponse {
			return colorResponse{Name: c.Name, Hex: c.Hex}
		}),
	}
	if resp.Sizes == nil {
		resp.Sizes = []string{}
	}
	if resp.Variants == nil {
		resp.Variants = []variantResponse{}
	}
	if resp.Colors == nil {
		resp.Colors = []colorResponse{}
	}
	if p.Discount != nil {
		d := p.Discount.String()
		resp.Discount = &d
	}
	return resp
}
