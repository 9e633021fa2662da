package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

// MemoryStore is a mutex-guarded in-memory Store. It is the default backend
// and the reference implementation of the conditional-decrement contract.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*domain.InventoryEntry
	sales   []domain.SaleRecord
	logs    []domain.CommandLogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*domain.InventoryEntry)}
}

func (m *MemoryStore) GetQuantity(ctx context.Context, product string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[product]
	if !ok {
		return 0, false, nil
	}
	return e.Quantity, true, nil
}

func (m *MemoryStore) AddStock(ctx context.Context, product string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.ensureEntry(product)
	e.Quantity += qty
	e.UpdatedAt = time.Now().UTC()
	return e.Quantity, nil
}

func (m *MemoryStore) RemoveStock(ctx context.Context, product string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[product]
	if !ok {
		return 0, domain.ErrInsufficientStock
	}
	if e.Quantity < qty {
		return e.Quantity, domain.ErrInsufficientStock
	}
	e.Quantity -= qty
	e.UpdatedAt = time.Now().UTC()
	return e.Quantity, nil
}

func (m *MemoryStore) SetPricing(ctx context.Context, product string, cost, selling decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.ensureEntry(product)
	e.CostPrice = cost
	e.SellingPrice = selling
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sales = append(m.sales, sale)
	return nil
}

func (m *MemoryStore) AppendLog(ctx context.Context, entry domain.CommandLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs = append(m.logs, entry)
	return nil
}

func (m *MemoryStore) Entries(ctx context.Context) ([]domain.InventoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.InventoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out, nil
}

func (m *MemoryStore) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SaleRecord, len(m.sales))
	copy(out, m.sales)
	return out, nil
}

func (m *MemoryStore) Logs(ctx context.Context) ([]domain.CommandLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.CommandLogEntry, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

// ensureEntry must be called with the lock held.
func (m *MemoryStore) ensureEntry(product string) *domain.InventoryEntry {
	e, ok := m.entries[product]
	if !ok {
		e = &domain.InventoryEntry{
			Product:      product,
			CostPrice:    decimal.Zero,
			SellingPrice: decimal.Zero,
			CreatedAt:    time.Now().UTC(),
		}
		m.entries[product] = e
	}
	return e
}
