package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/storage/kv"
)

// wishlistKey is the fixed persistence slot for the saved-item list.
const wishlistKey = "storefront:wishlist"

// SavedItem is one wishlist entry. The id is the identity key; re-adding an
// existing id replaces the stored record instead of appending a duplicate.
type SavedItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	VariantID string          `json:"variant_id,omitempty"`
}

// Wishlist is a persisted set of saved items keyed by id. Every mutation is
// written through to the backing store; a corrupt slot reads as empty.
type Wishlist struct {
	store kv.Store

	mu sync.Mutex
}

// NewWishlist creates a Wishlist backed by the given store.
func NewWishlist(store kv.Store) *Wishlist {
	return &Wishlist{store: store}
}

// Add saves an item. Set semantics on id: an existing entry is replaced in
// place, keeping its position.
func (w *Wishlist) Add(ctx context.Context, item SavedItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	items := w.load(ctx)
	replaced := false
	for i, existing := range items {
		if existing.ID == item.ID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	return errors.Wrap(w.save(ctx, items), "add wishlist item")
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (w *Wishlist) Remove(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	items := w.load(ctx)
	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}

	return errors.Wrap(w.save(ctx, kept), "remove wishlist item")
}

// Clear empties the wishlist.
func (w *Wishlist) Clear(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return errors.Wrap(w.store.Delete(ctx, wishlistKey), "clear wishlist")
}

// Items returns the saved items in first-add order.
func (w *Wishlist) Items(ctx context.Context) []SavedItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.load(ctx)
}

// Contains reports whether an entry with the given id is saved.
func (w *Wishlist) Contains(ctx context.Context, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, item := range w.load(ctx) {
		if item.ID == id {
			return true
		}
	}
	return false
}

func (w *Wishlist) load(ctx context.Context) []SavedItem {
	var items []SavedItem
	if err := kv.GetJSON(ctx, w.store, wishlistKey, &items); err != nil {
		return nil
	}
	return items
}

func (w *Wishlist) save(ctx context.Context, items []SavedItem) error {
	if len(items) == 0 {
		return w.store.Delete(ctx, wishlistKey)
	}
	return kv.SetJSON(ctx, w.store, wishlistKey, items)
}
