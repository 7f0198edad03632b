package filter

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/commerce"
)

// Fetcher abstracts the catalog fetch orchestrator.
type Fetcher interface {
	FetchCatalog(ctx context.Context, q commerce.Query) (*commerce.Result, error)
}

// Snapshot is the immutable view pushed to subscribers after every applied
// change: the visible products for the current state, the state itself, and
// the provenance of the underlying catalog.
type Snapshot struct {
	Visible []catalog.Product
	State   State
	Source  commerce.Source
}

// Session owns one page's catalog snapshot and filter state. All updates
// flow through it (reducer-style, no ambient globals), subscribers are
// notified after each applied change, and a monotonic generation counter
// discards fetch responses that were superseded while in flight.
type Session struct {
	fetcher  Fetcher
	history  *History
	debounce *Debouncer

	mu         sync.Mutex
	state      State
	products   []catalog.Product
	source     commerce.Source
	maxPrice   decimal.Decimal
	generation uint64
	nextSubID  int
	subs       map[int]func(Snapshot)
}

// NewSession creates a Session. history may be nil when search terms should
// not be recorded.
func NewSession(fetcher Fetcher, history *History) *Session {
	return &Session{
		fetcher:  fetcher,
		history:  history,
		debounce: NewDebouncer(DefaultDebounce),
		subs:     make(map[int]func(Snapshot)),
	}
}

// Subscribe registers a callback invoked with a fresh Snapshot after every
// applied change. The returned function cancels the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
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

// Refresh fetches a new catalog snapshot. If a newer Refresh started while
// this one's response was in flight, the stale response is discarded:
// last-started wins, never a silent overwrite by an older fetch.
func (s *Session) Refresh(ctx context.Context, q commerce.Query) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	result, err := s.fetcher.FetchCatalog(ctx, q)
	if err != nil {
		return errors.Wrap(err, "refresh catalog")
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.products = result.Products
	s.source = result.Source
	s.maxPrice = snapshotMaxPrice(result.Products)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Update applies a state mutation through the single serialized update path
// and notifies subscribers. Price range invariants are re-clamped after
// every mutation.
func (s *Session) Update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	s.state.ClampPrice(s.maxPrice)
	s.mu.Unlock()

	s.notify()
}

// SetQuery records free-text input. The raw query updates immediately, but
// matching waits for the debounce delay; a newer keystroke supersedes any
// pending application. Applied searches are recorded in the history.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	s.state.Query = query
	s.mu.Unlock()

	s.debounce.Trigger(func() {
		s.mu.Lock()
		if s.state.Query != query {
			// A newer keystroke won the race while the timer fired.
			s.mu.Unlock()
			return
		}
		s.state.AppliedQuery = query
		s.mu.Unlock()

		s.notify()

		if s.history != nil && query != "" {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = s.history.Add(ctx, query)
		}
	})
}

// Snapshot returns the current view without mutating anything.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels any pending debounced work.
func (s *Session) Close() {
	s.debounce.Stop()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Visible: Apply(s.products, s.state),
		State:   s.state,
		Source:  s.source,
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func snapshotMaxPrice(products []catalog.Product) decimal.Decimal {
	max := decimal.Zero
	for _, p := range products {
		if p.Price.GreaterThan(max) {
			max = p.Price
		}
	}
	return max
}
