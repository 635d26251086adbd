package popularity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/moviefinder/internal/domain"
)

// MemoryStore keeps search counts in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []domain.SearchCount
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

// List returns records matching filter in insertion order, or by count
// descending when requested. Equal counts keep insertion order.
func (m *MemoryStore) List(ctx context.Context, filter domain.SearchCountFilter) ([]domain.SearchCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.SearchCount, 0, len(m.records))
	for _, rec := range m.records {
		if filter.SearchTerm != nil && rec.SearchTerm != *filter.SearchTerm {
			continue
		}
		out = append(out, rec)
	}
	if filter.OrderByCountDesc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Create stores rec under a new id. It does not check for duplicate terms.
func (m *MemoryStore) Create(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, error) {
	if err := ctx.Err(); err != nil {
		return domain.SearchCount{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records = append(m.records, rec)
	return rec, nil
}

// UpdateCount overwrites the count of the record with the given id.
func (m *MemoryStore) UpdateCount(ctx context.Context, id string, count int64) (domain.SearchCount, error) {
	if err := ctx.Err(); err != nil {
		return domain.SearchCount{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Count = count
			m.records[i].UpdatedAt = m.now()
			return m.records[i], nil
		}
	}
	return domain.SearchCount{}, ErrNotFound
}

// Increment adds one to the record for rec.SearchTerm, creating it from rec
// when absent.
func (m *MemoryStore) Increment(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SearchCount{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for i := range m.records {
		if m.records[i].SearchTerm == rec.SearchTerm {
			m.records[i].Count++
			m.records[i].UpdatedAt = now
			return m.records[i], false, nil
		}
	}
	rec.ID = uuid.NewString()
	rec.Count = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records = append(m.records, rec)
	return rec, true, nil
}
