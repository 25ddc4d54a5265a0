package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wonny/condor/internal/contracts"
)

// MemoryRepository keeps the latest run per ticker in process memory
// Used when no database is configured; nothing survives a restart.
type MemoryRepository struct {
	mu     sync.RWMutex
	latest map[string]*contracts.ScreenRun
}

var _ contracts.ScreenRunRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{latest: make(map[string]*contracts.ScreenRun)}
}

// SaveRun replaces the ticker's latest run with a copy of run
func (m *MemoryRepository) SaveRun(_ context.Context, run *contracts.ScreenRun) error {
	cp := *run
	cp.Ranked = append([]contracts.Analytics(nil), run.Ranked...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.latest[cp.Ticker]; ok && prev.CreatedAt.After(cp.CreatedAt) {
		return nil
	}
	m.latest[cp.Ticker] = &cp
	return nil
}

// GetLatestRun returns the ticker's latest run
func (m *MemoryRepository) GetLatestRun(_ context.Context, ticker string) (*contracts.ScreenRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.latest[strings.ToUpper(ticker)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ticker, contracts.ErrRunNotFound)
	}
	cp := *run
	return &cp, nil
}

// ListLatestRuns returns the latest run per ticker, newest first, without candidates
func (m *MemoryRepository) ListLatestRuns(_ context.Context, limit int) ([]contracts.ScreenRun, error) {
	m.mu.RLock()
	runs := make([]contracts.ScreenRun, 0, len(m.latest))
	for _, run := range m.latest {
		cp := *run
		cp.Ranked = nil
		runs = append(runs, cp)
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].Ticker < runs[j].Ticker
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
