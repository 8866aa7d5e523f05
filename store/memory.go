package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps runs in process memory. It satisfies RunStore and
// is the default backend when no database path is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

var _ RunStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*RunRecord)}
}

func (s *MemoryStore) SaveRun(_ context.Context, r *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.runs[r.ID]; ok {
		existing.Status = r.Status
		existing.Result = r.Result
		existing.Error = r.Error
		if (r.Status == StatusCompleted || r.Status == StatusFailed) && existing.CompletedAt == nil {
			now := time.Now().UTC()
			existing.CompletedAt = &now
		}
		return nil
	}

	cp := *r
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now().UTC()
	}
	s.runs[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
