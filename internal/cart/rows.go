package cart

import (
	"context"
	"sort"
	"sync"
)

// Row is one server-persisted cart line, keyed by (UserID, ProductID).
type Row struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Rows is the optional server-side cart mirror: an upsert/delete/select
// relation with composite uniqueness on (userID, productID).
type Rows interface {
	Upsert(ctx context.Context, userID, productID string, quantity int) error
	Delete(ctx context.Context, userID, productID string) error
	List(ctx context.Context, userID string) ([]Row, error)
	Clear(ctx context.Context, userID string) error
}

var _ Rows = (*MemoryRows)(nil)

// MemoryRows is an in-process Rows implementation used when no database is
// configured, and in tests.
type MemoryRows struct {
	mu   sync.RWMutex
	rows map[string]map[string]int
}

// NewMemoryRows returns an empty in-memory cart relation.
func NewMemoryRows() *MemoryRows {
	return &MemoryRows{rows: make(map[string]map[string]int)}
}

func (m *MemoryRows) Upsert(_ context.Context, userID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.rows[userID]
	if !ok {
		user = make(map[string]int)
		m.rows[userID] = user
	}
	user[productID] = quantity
	return nil
}

func (m *MemoryRows) Delete(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows[userID], productID)
	return nil
}

func (m *MemoryRows) List(_ context.Context, userID string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user := m.rows[userID]
	rows := make([]Row, 0, len(user))
	for productID, quantity := range user {
		rows = append(rows, Row{UserID: userID, ProductID: productID, Quantity: quantity})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
	return rows, nil
}

func (m *MemoryRows) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.rows, userID)
	return nil
}
