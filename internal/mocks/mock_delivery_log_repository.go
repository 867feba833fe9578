package mocks

import (
	"context"
	"sync"

	"github.com/you/dispatchsvc/domain"
)

// MockDeliveryLogRepository implements domain.DeliveryLogRepository and keeps appended rows in memory
type MockDeliveryLogRepository struct {
	AppendFunc          func(ctx context.Context, entry *domain.DeliveryLogEntry) error
	ListByRecipientFunc func(ctx context.Context, recipient string, limit int) ([]*domain.DeliveryLogEntry, error)

	mu      sync.Mutex
	entries []*domain.DeliveryLogEntry
}

// NewMockDeliveryLogRepository creates a new MockDeliveryLogRepository with default behaviors
func NewMockDeliveryLogRepository() *MockDeliveryLogRepository {
	return &MockDeliveryLogRepository{}
}

// Append records an entry
func (m *MockDeliveryLogRepository) Append(ctx context.Context, entry *domain.DeliveryLogEntry) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	// Default behavior: keep the entry
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

// ListByRecipient returns stored entries for a recipient, newest first
func (m *MockDeliveryLogRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*domain.DeliveryLogEntry, error) {
	if m.ListByRecipientFunc != nil {
		return m.ListByRecipientFunc(ctx, recipient, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DeliveryLogEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Recipient == recipient {
			out = append(out, m.entries[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns every appended entry in order
func (m *MockDeliveryLogRepository) Entries() []*domain.DeliveryLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.DeliveryLogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Compile-time interface compliance verification
var _ domain.DeliveryLogRepository = (*MockDeliveryLogRepository)(nil)
