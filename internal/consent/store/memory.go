package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"familygate/internal/consent/models"
	"familygate/pkg/domain"
)

// Memory is the in-memory consent trail for unit tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	records map[domain.ConsentRecordID]*models.ConsentRecord
	order   []domain.ConsentRecordID
}

func NewMemory() *Memory {
	return &Memory{records: make(map[domain.ConsentRecordID]*models.ConsentRecord)}
}

func (m *Memory) Append(_ context.Context, record *models.ConsentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cloneRecord(record)
	m.records[record.ID] = cp
	m.order = append(m.order, record.ID)
	return nil
}

func (m *Memory) ListByChild(_ context.Context, childProfileID domain.ProfileID) ([]*models.ConsentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ConsentRecord
	for _, id := range m.order {
		r := m.records[id]
		if r.ChildProfileID == childProfileID {
			out = append(out, cloneRecord(r))
		}
	}
	// Newest first; insertion order breaks granted-at ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GrantedAt.After(out[j].GrantedAt)
	})
	return out, nil
}

func (m *Memory) FindActiveByChild(_ context.Context, childProfileID domain.ProfileID, now time.Time) (*models.ConsentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.records[m.order[i]]
		if r.ChildProfileID == childProfileID && r.IsActive(now) {
			return cloneRecord(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) MarkRevoked(_ context.Context, id domain.ConsentRecordID, revokedAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = models.StatusRevoked
	r.RevokedAt = &revokedAt
	r.RevokedReason = reason
	return nil
}

// Count reports the total number of rows; tests use it to assert the
// append-only contract.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Snapshot deep-copies the store state; Restore replaces it. The in-memory
// transaction runner uses the pair to honor rollback semantics.
func (m *Memory) Snapshot() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := NewMemory()
	for id, r := range m.records {
		snap.records[id] = cloneRecord(r)
	}
	snap.order = append([]domain.ConsentRecordID(nil), m.order...)
	return snap
}

func (m *Memory) Restore(snap *Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = snap.records
	m.order = snap.order
}

func cloneRecord(r *models.ConsentRecord) *models.ConsentRecord {
	cp := *r
	if r.RevokedAt != nil {
		revokedAt := *r.RevokedAt
		cp.RevokedAt = &revokedAt
	}
	return &cp
}
