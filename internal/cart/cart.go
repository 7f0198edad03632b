// Package cart holds the in-memory cart and wishlist state. Quantities are
// the single source of truth; totals are always derived, never stored, so
// they cannot drift from the underlying mapping.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Item is one cart line: a product or variant id with a positive quantity.
type Item struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// PriceFunc resolves a unit price for a cart id. The second return reports
// whether the id is known; unknown ids contribute nothing to the subtotal.
type PriceFunc func(id string) (decimal.Decimal, bool)

// Store is a mutable cart keyed by product/variant id. Entries keep first-add
// order, zero quantities are removed rather than persisted, and subscribers
// are notified after every applied change.
type Store struct {
	mu        sync.Mutex
	qty       map[string]int
	order     []string
	nextSubID int
	subs      map[int]func([]Item)
}

// NewStore creates an empty cart.
func NewStore() *Store {
	return &Store{
		qty:  make(map[string]int),
		subs: make(map[int]func([]Item)),
	}
}

// Subscribe registers a callback invoked with the full item list after every
// applied change. The returned function cancels the subscription.
func (s *Store) Subscribe(fn func([]Item)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetQuantity sets the quantity for id. Zero removes the entry entirely,
// negative values are rejected as a no-op.
func (s *Store) SetQuantity(id string, n int) {
	if n < 0 {
		return
	}

	s.mu.Lock()
	if n == 0 {
		s.removeLocked(id)
	} else {
		if _, ok := s.qty[id]; !ok {
			s.order = append(s.order, id)
		}
		s.qty[id] = n
	}
	s.mu.Unlock()

	s.notify()
}

// Add increments the quantity for id by one, starting from zero when absent.
func (s *Store) Add(id string) {
	s.mu.Lock()
	if _, ok := s.qty[id]; !ok {
		s.order = append(s.order, id)
	}
	s.qty[id]++
	s.mu.Unlock()

	s.notify()
}

// Remove deletes the entry for id regardless of quantity.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()

	s.notify()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.qty = make(map[string]int)
	s.order = nil
	s.mu.Unlock()

	s.notify()
}

// Quantity returns the quantity for id, zero when absent.
func (s *Store) Quantity(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qty[id]
}

// Items returns the cart lines in first-add order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

// ItemCount returns the total quantity across all lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.qty {
		total += n
	}
	return total
}

// Subtotal derives the cart total from current quantities and the given
// price resolver.
func (s *Store) Subtotal(price PriceFunc) decimal.Decimal {
	items := s.Items()

	total := decimal.Zero
	for _, it := range items {
		unit, ok := price(it.ID)
		if !ok {
			continue
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (s *Store) removeLocked(id string) {
	if _, ok := s.qty[id]; !ok {
		return
	}
	delete(s.qty, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) itemsLocked() []Item {
	items := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, Item{ID: id, Quantity: s.qty[id]})
	}
	return items
}

func (s *Store) notify() {
	s.mu.Lock()
	items := s.itemsLocked()
	subs := make([]func([]Item), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(items)
	}
}
