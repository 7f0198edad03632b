// Package commerce fetches product data from the external commerce backend
// and degrades gracefully: transport or parse failures fall back to the
// local catalog mirror, then to the embedded sample dataset, so callers
// always receive renderable products.
package commerce

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/catalog"
)

// Source identifies where a catalog result came from, so the UI can
// disclose non-live data.
type Source string

const (
	// SourceLive means the commerce backend answered.
	SourceLive Source = "live"
	// SourceMirror means the local postgres catalog mirror answered.
	SourceMirror Source = "mirror"
	// SourceSample means the embedded sample dataset answered.
	SourceSample Source = "sample"
)

const (
	// DefaultPageSize is the catalog page size when the caller gives none.
	DefaultPageSize = 12
	// featuredTag is the backend tag that marks featured products.
	featuredTag = "featured"
	// apiKeyHeader carries the static publishable key on every request.
	apiKeyHeader = "X-Publishable-Api-Key"

	maxResponseBytes = 8 << 20
)

// Query holds the outbound catalog filters.
type Query struct {
	Limit    int
	Category string
	Featured bool
	Search   string
}

// filtered reports whether the caller explicitly requested filtering. An
// empty result for an unfiltered query is treated as a backend fault and
// triggers the fallback.
func (q Query) filtered() bool {
	return q.Category != "" || q.Featured || q.Search != ""
}

// Result is a catalog response with its provenance. Degraded sources are a
// deliberate policy, not an error path.
type Result struct {
	Products []catalog.Product
	Source   Source
}

// Mirror lists locally mirrored catalog products. Optional.
type Mirror interface {
	List(ctx context.Context) ([]catalog.Product, error)
}

// Config holds the commerce client configuration.
type Config struct {
	// BaseURL is the commerce backend root, e.g. https://backend.example.com.
	BaseURL string
	// APIKey is the static publishable key sent on every request.
	APIKey string
	// PreferredCurrency selects the display price currency (default "usd").
	PreferredCurrency string
	// PageSize overrides DefaultPageSize when positive.
	PageSize int
	// Mirror is the optional local catalog mirror used as the first
	// fallback tier. Nil skips straight to the sample dataset.
	Mirror Mirror
}

// Client is the catalog fetch orchestrator.
type Client struct {
	http *retryablehttp.Client
	cfg  Config
}

// NewClient builds a Client with a retrying, traced HTTP transport.
func NewClient(cfg Config) *Client {
	if cfg.PreferredCurrency == "" {
		cfg.PreferredCurrency = "usd"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.HTTPClient.Transport = otelhttp.NewTransport(http.DefaultTransport)

	return &Client{http: rc, cfg: cfg}
}

// FetchCatalog queries the backend with the given filters and returns
// normalized products. Any transport or envelope-parse failure, and an
// empty unfiltered response, fall back to mirror then sample data; the
// result's Source reports which tier answered. Individual malformed records
// never abort the batch.
func (c *Client) FetchCatalog(ctx context.Context, q Query) (*Result, error) {
	if q.Limit <= 0 {
		q.Limit = c.cfg.PageSize
	}

	products, err := c.fetchLive(ctx, q)
	if err != nil {
		zctx.From(ctx).Warn("Catalog fetch failed, serving fallback", zap.Error(err))
		return c.fallback(ctx, q), nil
	}

	if len(products) == 0 && !q.filtered() {
		zctx.From(ctx).Warn("Catalog source returned empty unfiltered result, serving fallback")
		return c.fallback(ctx, q), nil
	}

	return &Result{Products: products, Source: SourceLive}, nil
}

func (c *Client) fetchLive(ctx context.Context, q Query) ([]catalog.Product, error) {
	u, err := url.Parse(strings.TrimSuffix(c.cfg.BaseURL, "/") + "/products")
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog url")
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Featured {
		params.Set("tags", featuredTag)
	}
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	u.RawQuery = params.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog request")
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "catalog request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("catalog source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read catalog response")
	}

	return decodeCatalog(body, c.cfg.PreferredCurrency)
}

// fallback serves the first non-empty tier: mirror, then embedded sample.
// The query's filters still apply locally so callers see consistent shapes
// regardless of tier.
func (c *Client) fallback(ctx context.Context, q Query) *Result {
	if c.cfg.Mirror != nil {
		mirrored, err := c.cfg.Mirror.List(ctx)
		switch {
		case err != nil:
			zctx.From(ctx).Warn("Catalog mirror unavailable", zap.Error(err))
		case len(mirrored) > 0:
			return &Result{Products: applyLocal(mirrored, q), Source: SourceMirror}
		}
	}

	sample := catalog.Sample(c.cfg.PreferredCurrency)
	return &Result{Products: applyLocal(sample, q), Source: SourceSample}
}

// applyLocal applies the outbound query's filters to an in-memory tier.
func applyLocal(products []catalog.Product, q Query) []catalog.Product {
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if q.Featured && !hasTagFold(p.Tags, featuredTag) {
			continue
		}
		if q.Search != "" && !containsFold(p.Name, q.Search) && !containsFold(p.Description, q.Search) {
			continue
		}
		out = append(out, p)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasTagFold(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
