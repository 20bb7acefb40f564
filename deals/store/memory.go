// Package store provides in-memory deals.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/revenue-engine/deals"
	"github.com/warp/revenue-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	deals map[generic.DealID]deals.Deal
}

var _ deals.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{deals: make(map[generic.DealID]deals.Deal)}
}

// NewMemoryWith seeds a store, e.g. from a deal file.
func NewMemoryWith(ctx context.Context, seed []deals.Deal) (*Memory, error) {
	m := NewMemory()
	for _, d := range seed {
		if err := m.Save(ctx, d); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Memory) Save(_ context.Context, deal deals.Deal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.deals[deal.ID]; exists {
		return generic.ErrDuplicateDeal
	}
	stored := deal.Clone()
	stored.FirstYearMonthlyRevenue = decimal.Decimal{}
	m.deals[deal.ID] = stored
	return nil
}

func (m *Memory) Get(_ context.Context, id generic.DealID) (deals.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deals[id]
	if !ok {
		return deals.Deal{}, generic.ErrDealNotFound
	}
	return d.Clone(), nil
}

func (m *Memory) List(_ context.Context) ([]deals.Deal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]deals.Deal, 0, len(m.deals))
	for _, d := range m.deals {
		result = append(result, d.Clone())
	}
	deals.SortDeals(result)
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id generic.DealID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.deals[id]; !ok {
		return generic.ErrDealNotFound
	}
	delete(m.deals, id)
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deals = make(map[generic.DealID]deals.Deal)
	return nil
}
