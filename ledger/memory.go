package ledger

import (
	"context"
	"sort"
	"sync"
)

// =============================================================================
// MEMORY GATEWAY - In-memory implementation (for testing/dev)
// =============================================================================

// MemoryGateway implements Gateway backed by slices. It keeps the raw row
// order so duplicate-collapse behavior matches the production store.
type MemoryGateway struct {
	mu        sync.RWMutex
	invoices  []Invoice
	movements []Movement
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{}
}

func (m *MemoryGateway) Invoices(_ context.Context) ([]Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// First occurrence wins on duplicate ids.
	seen := make(map[string]bool, len(m.invoices))
	result := make([]Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if seen[inv.ID] {
			continue
		}
		seen[inv.ID] = true
		result = append(result, inv)
	}
	return result, nil
}

func (m *MemoryGateway) AppendInvoices(_ context.Context, rows []Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, rows...)
	return nil
}

func (m *MemoryGateway) UpdateInvoice(_ context.Context, id string, patch InvoicePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.invoices {
		if m.invoices[i].ID == id {
			m.invoices[i] = patch.ApplyTo(m.invoices[i])
			return nil
		}
	}
	return ErrInvoiceNotFound
}

func (m *MemoryGateway) Movements(_ context.Context) ([]Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Movement, len(m.movements))
	copy(result, m.movements)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

func (m *MemoryGateway) AppendMovements(_ context.Context, rows []Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, rows...)
	return nil
}
