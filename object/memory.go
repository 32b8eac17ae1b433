package object

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store and Query. Saves are checked against the
// stored version so a stale copy fails with ErrConflict.
type MemoryStore struct {
	mutex   sync.RWMutex
	objects map[Reference]*Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[Reference]*Object)}
}

func (m *MemoryStore) Get(_ context.Context, ref Reference) (*Object, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	o, ok := m.objects[ref]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", ref, ErrNotFound)
	}
	return o.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, obj *Object) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ref := obj.Reference()
	stored, ok := m.objects[ref]
	switch {
	case ok && stored.Version() != obj.Version():
		return fmt.Errorf("save %s at version %d, stored %d: %w", ref, obj.Version(), stored.Version(), ErrConflict)
	case !ok && !obj.IsNew():
		return fmt.Errorf("save %s: %w", ref, ErrNotFound)
	}
	obj.SetVersion(obj.Version() + 1)
	m.objects[ref] = obj.Clone()
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, obj *Object) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ref := obj.Reference()
	if _, ok := m.objects[ref]; !ok {
		return fmt.Errorf("remove %s: %w", ref, ErrNotFound)
	}
	delete(m.objects, ref)
	return nil
}

// Find returns copies of every stored object of the given archetypes, ordered
// by reference.
func (m *MemoryStore) Find(_ context.Context, archetypes ...string) ([]*Object, error) {
	want := make(map[string]bool, len(archetypes))
	for _, a := range archetypes {
		want[a] = true
	}
	m.mutex.RLock()
	result := make([]*Object, 0)
	for ref, o := range m.objects {
		if want[ref.Archetype] {
			result = append(result, o.Clone())
		}
	}
	m.mutex.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].Reference().String() < result[j].Reference().String()
	})
	return result, nil
}

// Update applies fn to the stored copy of ref as if another session had edited
// it, bumping its version.
func (m *MemoryStore) Update(ref Reference, fn func(*Object)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	o, ok := m.objects[ref]
	if !ok {
		return fmt.Errorf("update %s: %w", ref, ErrNotFound)
	}
	fn(o)
	o.SetVersion(o.Version() + 1)
	return nil
}
