package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/cart"
)

const (
	upsertCartRowSQL = `INSERT INTO cart_items (user_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			updated_at = NOW()`

	deleteCartRowSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	listCartRowsSQL = `SELECT user_id, product_id, quantity
		FROM cart_items WHERE user_id = $1 ORDER BY product_id`

	clearCartRowsSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Rows = (*CartRows)(nil)

// CartRows implements cart.Rows backed by PostgreSQL, with composite
// uniqueness on (user_id, product_id).
type CartRows struct {
	pool *pgxpool.Pool
}

// NewCartRows returns a CartRows that uses the given pool.
func NewCartRows(pool *pgxpool.Pool) *CartRows {
	return &CartRows{pool: pool}
}

// Upsert writes the quantity for (userID, productID), replacing any existing
// row.
func (r *CartRows) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, upsertCartRowSQL, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upserting cart row (%q, %q): %w", userID, productID, err)
	}
	return nil
}

// Delete removes the row for (userID, productID).
func (r *CartRows) Delete(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, deleteCartRowSQL, userID, productID)
	if err != nil {
		return fmt.Errorf("deleting cart row (%q, %q): %w", userID, productID, err)
	}
	return nil
}

// List returns the user's cart rows ordered by product id.
func (r *CartRows) List(ctx context.Context, userID string) ([]cart.Row, error) {
	rows, err := r.pool.Query(ctx, listCartRowsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart rows for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Row, error) {
		var cr cart.Row
		err := row.Scan(&cr.UserID, &cr.ProductID, &cr.Quantity)
		return cr, err
	})
}

// Clear removes all rows for the user.
func (r *CartRows) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, clearCartRowsSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart rows for %q: %w", userID, err)
	}
	return nil
}
