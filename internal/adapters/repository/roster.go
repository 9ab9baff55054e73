// Package repository keeps the in-memory roster of tracked entities.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tourguide/internal/domain/model"
	"github.com/okian/tourguide/pkg/metrics"
)

// Roster holds the entities the tracker visits every cycle.
type Roster interface {
	// Add registers e under its name. Adding a name twice keeps the first
	// entity; the returned entity is the one in the roster and the bool
	// reports whether e was inserted.
	Add(ctx context.Context, e *model.Entity) (*model.Entity, bool, error)

	// Get returns the entity registered under name or ErrNotFound.
	Get(ctx context.Context, name string) (*model.Entity, error)

	// All returns a point-in-time snapshot in insertion order.
	All(ctx context.Context) []*model.Entity

	// Count returns the number of tracked entities.
	Count(ctx context.Context) int
}

// MemoryRoster implements Roster with a map and an insertion-ordered slice.
type MemoryRoster struct {
	mu     sync.RWMutex
	byName map[string]*model.Entity
	order  []*model.Entity
}

// NewMemoryRoster creates an empty roster.
func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{byName: make(map[string]*model.Entity)}
}

// Add registers e unless its name is already tracked.
func (r *MemoryRoster) Add(_ context.Context, e *model.Entity) (*model.Entity, bool, error) {
	if e == nil || e.Name == "" {
		return nil, false, fmt.Errorf("add: %w", ErrInvalidEntity)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[e.Name]; ok {
		return existing, false, nil
	}
	r.byName[e.Name] = e
	r.order = append(r.order, e)
	metrics.UpdateTrackedEntities(len(r.order))
	return e, true, nil
}

// Get returns the entity registered under name.
func (r *MemoryRoster) Get(_ context.Context, name string) (*model.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return e, nil
}

// All returns a copy of the roster. Entities added later are not included.
func (r *MemoryRoster) All(_ context.Context) []*model.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Entity, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of tracked entities.
func (r *MemoryRoster) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
