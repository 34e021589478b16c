package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rafaeljc/adentity/internal/adcontext"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in process memory behind a RWMutex. It is
// meant for development and tests; nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	placements map[string]Placement
	fields     map[FieldOwner]FieldValues
	now        func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		placements: make(map[string]Placement),
		fields:     make(map[FieldOwner]FieldValues),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreatePlacement(_ context.Context, p *Placement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.placements[p.ID]; exists {
		return fmt.Errorf("placement %q: %w", p.ID, ErrAlreadyExists)
	}

	now := m.now()
	p.UUID = uuid.NewString()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now
	m.placements[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPlacement(_ context.Context, id string) (*Placement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.placements[id]
	if !ok {
		return nil, fmt.Errorf("placement %q: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) ListPlacements(_ context.Context, limit, offset int) ([]*Placement, int64, error) {
	all := m.sorted(func(a, b Placement) int { return cmp.Compare(a.ID, b.ID) })
	total := int64(len(all))

	if offset >= len(all) {
		return []*Placement{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (m *MemoryStore) ListAllPlacements(_ context.Context) ([]*Placement, error) {
	return m.sorted(func(a, b Placement) int {
		return cmp.Or(cmp.Compare(a.Label, b.Label), cmp.Compare(a.ID, b.ID))
	}), nil
}

func (m *MemoryStore) sorted(order func(a, b Placement) int) []*Placement {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make([]Placement, 0, len(m.placements))
	for _, p := range m.placements {
		values = append(values, p)
	}
	slices.SortFunc(values, order)

	out := make([]*Placement, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

func (m *MemoryStore) UpdatePlacement(_ context.Context, params *UpdatePlacementParams) (*Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.placements[params.ID]
	if !ok {
		return nil, fmt.Errorf("placement %q: %w", params.ID, ErrNotFound)
	}
	if params.Version != 0 && params.Version != p.Version {
		return nil, fmt.Errorf("placement %q: %w", params.ID, ErrVersionConflict)
	}

	if params.Label != nil {
		p.Label = *params.Label
	}
	p.Version++
	p.UpdatedAt = m.now()
	m.placements[p.ID] = p
	return &p, nil
}

func (m *MemoryStore) DeletePlacement(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.placements[id]; !ok {
		return fmt.Errorf("placement %q: %w", id, ErrNotFound)
	}
	delete(m.placements, id)
	return nil
}

func (m *MemoryStore) LoadAssignments(_ context.Context, owner FieldOwner) (*FieldValues, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values, ok := m.fields[owner]
	if !ok {
		return &FieldValues{Owner: owner, Assignments: []adcontext.Assignment{}}, nil
	}
	assignments, err := cloneAssignments(values.Assignments)
	if err != nil {
		return nil, err
	}
	values.Assignments = assignments
	return &values, nil
}

func (m *MemoryStore) SaveAssignments(_ context.Context, owner FieldOwner, assignments []adcontext.Assignment) (*FieldValues, error) {
	stored, err := cloneAssignments(normalizeAssignments(assignments))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	values := FieldValues{
		Owner:       owner,
		Assignments: stored,
		Version:     m.fields[owner].Version + 1,
		UpdatedAt:   m.now(),
	}
	m.fields[owner] = values

	out := values
	out.Assignments = normalizeAssignments(assignments)
	return &out, nil
}

func (m *MemoryStore) ListFieldOwners(_ context.Context) ([]FieldOwner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owners := make([]FieldOwner, 0, len(m.fields))
	for o := range m.fields {
		owners = append(owners, o)
	}
	slices.SortFunc(owners, func(a, b FieldOwner) int { return cmp.Compare(a.Key(), b.Key()) })
	return owners, nil
}

// cloneAssignments deep-copies through JSON, which is also the persisted
// shape, so the memory store hands out exactly what PostgreSQL would.
func cloneAssignments(in []adcontext.Assignment) ([]adcontext.Assignment, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode assignments: %w", err)
	}
	out := []adcontext.Assignment{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	return out, nil
}
