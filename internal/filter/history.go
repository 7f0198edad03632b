package filter

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/xenking/storefront/internal/storage/kv"
)

const (
	// historyKey is the fixed storage slot for the recent-search list.
	historyKey = "storefront:recent-searches"
	// historyLimit bounds the list length.
	historyLimit = 5
)

// History is the bounded, deduplicated recent-search list, persisted as a
// JSON array under a fixed key. Corrupt stored data reads as empty.
type History struct {
	store kv.Store
}

// NewHistory creates a History backed by the given store.
func NewHistory(store kv.Store) *History {
	return &History{store: store}
}

// Add records a search term at the front of the history. Re-searching an
// existing term (exact match) moves it to the front instead of duplicating
// it; the list never exceeds historyLimit entries. Blank terms are ignored.
func (h *History) Add(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	current := h.List(ctx)

	updated := make([]string, 0, historyLimit)
	updated = append(updated, term)
	for _, t := range current {
		if t == term {
			continue
		}
		updated = append(updated, t)
		if len(updated) == historyLimit {
			break
		}
	}

	if err := kv.SetJSON(ctx, h.store, historyKey, updated); err != nil {
		return errors.Wrap(err, "save search history")
	}
	return nil
}

// List returns the history, most recent first. Missing or corrupt stored
// state yields an empty list.
func (h *History) List(ctx context.Context) []string {
	var terms []string
	_ = kv.GetJSON(ctx, h.store, historyKey, &terms)
	if len(terms) > historyLimit {
		terms = terms[:historyLimit]
	}
	return terms
}

// Clear empties the history.
func (h *History) Clear(ctx context.Context) error {
	if err := h.store.Delete(ctx, historyKey); err != nil {
		return errors.Wrap(err, "clear search history")
	}
	return nil
}

// Suggest returns history entries fuzzily matching the given input, best
// match first. An empty input returns the whole history.
func (h *History) Suggest(ctx context.Context, input string) []string {
	terms := h.List(ctx)
	input = strings.TrimSpace(input)
	if input == "" {
		return terms
	}

	ranked := fuzzy.RankFindNormalizedFold(input, terms)
	sort.Sort(ranked)
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Target
	}
	return out
}
