package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/overtime-engine/generic"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	workspaces map[string]*workspace
}

type workspace struct {
	reference *overtime.ReferenceData
	entries   []*overtime.TimeEntry
	index     map[string]int
	runs      []Run
}

func NewMemory() *Memory {
	return &Memory{workspaces: make(map[string]*workspace)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) getOrCreate(id string) *workspace {
	ws, ok := m.workspaces[id]
	if !ok {
		ws = &workspace{reference: &overtime.ReferenceData{}, index: make(map[string]int)}
		m.workspaces[id] = ws
	}
	return ws
}

func (m *Memory) get(id string) (*workspace, error) {
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, generic.ErrWorkspaceNotFound
	}
	return ws, nil
}

func (m *Memory) SaveReference(_ context.Context, workspaceID string, ref *overtime.ReferenceData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ref == nil {
		ref = &overtime.ReferenceData{}
	}
	m.getOrCreate(workspaceID).reference = ref
	return nil
}

func (m *Memory) LoadReference(_ context.Context, workspaceID string) (*overtime.ReferenceData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.get(workspaceID)
	if err != nil {
		return nil, err
	}
	return ws.reference, nil
}

func (m *Memory) UpsertEntries(_ context.Context, workspaceID string, entries []*overtime.TimeEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws := m.getOrCreate(workspaceID)
	stored := Normalize(entries)
	for _, e := range stored {
		if i, ok := ws.index[e.ID]; ok {
			ws.entries[i] = e
			continue
		}
		ws.index[e.ID] = len(ws.entries)
		ws.entries = append(ws.entries, e)
	}
	return len(stored), nil
}

func (m *Memory) LoadEntries(_ context.Context, workspaceID string) ([]*overtime.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.get(workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]*overtime.TimeEntry, len(ws.entries))
	copy(out, ws.entries)
	return out, nil
}

func (m *Memory) DeleteWorkspace(_ context.Context, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[workspaceID]; !ok {
		return generic.ErrWorkspaceNotFound
	}
	delete(m.workspaces, workspaceID)
	return nil
}

func (m *Memory) SaveRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.getOrCreate(run.WorkspaceID)
	ws.runs = append(ws.runs, run)
	return nil
}

func (m *Memory) ListRuns(_ context.Context, workspaceID string, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, err := m.get(workspaceID)
	if err != nil {
		return nil, err
	}
	// Newest first; on equal timestamps the later insert comes first.
	runs := make([]Run, 0, len(ws.runs))
	for i := len(ws.runs) - 1; i >= 0; i-- {
		runs = append(runs, ws.runs[i])
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
