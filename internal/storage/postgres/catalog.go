package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/commerce"
)

const (
	upsertMirrorProductSQL = `INSERT INTO catalog_mirror
		(id, name, description, image, price, category, rating, review_count, discount,
		 sizes, colors, variants, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			discount = EXCLUDED.discount,
			sizes = EXCLUDED.sizes,
			colors = EXCLUDED.colors,
			variants = EXCLUDED.variants,
			tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at,
			updated_at = NOW()`

	listMirrorProductsSQL = `SELECT id, name, description, image, price, category,
		rating, review_count, discount, sizes, colors, variants, tags, created_at
		FROM catalog_mirror ORDER BY created_at DESC, id`
)

var _ commerce.Mirror = (*CatalogMirror)(nil)

// CatalogMirror persists normalized products so the storefront can serve a
// recent catalog copy when the commerce backend is unreachable.
type CatalogMirror struct {
	pool *pgxpool.Pool
}

// NewCatalogMirror returns a CatalogMirror that uses the given pool.
func NewCatalogMirror(pool *pgxpool.Pool) *CatalogMirror {
	return &CatalogMirror{pool: pool}
}

// Upsert writes products into the mirror, replacing existing rows by id.
// Degraded records are skipped: mirroring placeholder rows would poison the
// fallback tier with empty data.
func (m *CatalogMirror) Upsert(ctx context.Context, products []catalog.Product) error {
	for _, p := range products {
		if p.Degraded || p.ID == "" {
			continue
		}

		sizes, err := json.Marshal(p.Sizes)
		if err != nil {
			return fmt.Errorf("encoding sizes for %q: %w", p.ID, err)
		}
		colors, err := json.Marshal(p.Colors)
		if err != nil {
			return fmt.Errorf("encoding colors for %q: %w", p.ID, err)
		}
		variants, err := json.Marshal(p.Variants)
		if err != nil {
			return fmt.Errorf("encoding variants for %q: %w", p.ID, err)
		}
		tags, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags for %q: %w", p.ID, err)
		}

		_, err = m.pool.Exec(ctx, upsertMirrorProductSQL,
			p.ID, p.Name, p.Description, p.Image, p.Price, p.Category,
			p.Rating, p.ReviewCount, p.Discount,
			sizes, colors, variants, tags, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting mirror product %q: %w", p.ID, err)
		}
	}
	return nil
}

// List returns all mirrored products, newest first.
func (m *CatalogMirror) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := m.pool.Query(ctx, listMirrorProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing mirror products: %w", err)
	}
	return pgx.CollectRows(rows, scanMirrorProduct)
}

func scanMirrorProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p           catalog.Product
		price       decimal.Decimal
		rating      *float64
		reviewCount *int
		discount    *decimal.Decimal
		sizes       []byte
		colors      []byte
		variants    []byte
		tags        []byte
		createdAt   time.Time
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Image, &price, &p.Category,
		&rating, &reviewCount, &discount, &sizes, &colors, &variants, &tags, &createdAt,
	)
	if err != nil {
		return catalog.Product{}, err
	}

	p.Price = price
	p.Rating = rating
	p.ReviewCount = reviewCount
	p.Discount = discount
	p.CreatedAt = createdAt

	if err := json.Unmarshal(sizes, &p.Sizes); err != nil {
		return catalog.Product{}, fmt.Errorf("decoding sizes for %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(colors, &p.Colors); err != nil {
		return catalog.Product{}, fmt.Errorf("decoding colors for %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(variants, &p.Variants); err != nil {
		return catalog.Product{}, fmt.Errorf("decoding variants for %q: %w", p.ID, err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return catalog.Product{}, fmt.Errorf("decoding tags for %q: %w", p.ID, err)
	}
	return p, nil
}
