// Package kv defines a narrow key-value slot interface used for small
// persisted client state (recent searches, wishlist), with JSON helpers
// that treat corrupt stored data as empty.
package kv

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a byte-slot key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// GetJSON loads and decodes the JSON value stored under key into out.
// A missing key or corrupt stored JSON leaves out untouched and returns
// nil: persisted slots degrade to empty state, never to an error.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrapf(err, "get %q", key)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// Corrupt slot: treat as empty rather than failing reads forever.
		return nil
	}
	return nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %q", key)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used when no external store is configured,
// and in tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
