package lead

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and local development.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
	log   []AutomationLogEntry
	seq   int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: make(map[string]Lead)}
}

func (m *MemoryRepo) Upsert(_ context.Context, l *Lead) (*Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored, ok := m.leads[l.ID]
	if !ok {
		stored = *l
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
	} else {
		processed := stored.Processed
		createdAt := stored.CreatedAt
		stored = *l
		stored.Processed = processed
		stored.CreatedAt = createdAt
	}
	stored.UpdatedAt = now
	m.leads[l.ID] = stored
	out := stored
	return &out, nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := l
	return &out, nil
}

func (m *MemoryRepo) FindQualifyingUnprocessed(_ context.Context, clientID string, threshold int, maxAge time.Duration, limit int) ([]Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var out []Lead
	for _, l := range m.leads {
		if l.Processed || l.Score < threshold || l.CreatedAt.Before(cutoff) {
			continue
		}
		if clientID != "" && l.ClientID != clientID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) MarkProcessed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return false, ErrNotFound
	}
	if l.Processed {
		return false, nil
	}
	l.Processed = true
	l.UpdatedAt = time.Now()
	m.leads[id] = l
	return true, nil
}

func (m *MemoryRepo) AppendAutomationLog(_ context.Context, e AutomationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e.ID = m.seq
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.log = append(m.log, e)
	return nil
}

func (m *MemoryRepo) ListAutomationLog(_ context.Context, leadID string) ([]AutomationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AutomationLogEntry
	for _, e := range m.log {
		if e.LeadID == leadID {
			out = append(out, e)
		}
	}
	return out, nil
}
