package model

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/tourguide/internal/domain/dedupe"
)

// Entity is a tracked subject. Its visit history and rewards are only
// reachable through methods so every mutation goes through mu.
type Entity struct {
	ID   uuid.UUID
	Name string

	mu      sync.RWMutex
	visits  []VisitRecord
	rewards []RewardRecord

	// claims holds attraction IDs that are rewarded or being rewarded.
	claims dedupe.Deduper
}

// NewEntity creates an entity with an empty history.
func NewEntity(id uuid.UUID, name string) *Entity {
	return &Entity{
		ID:     id,
		Name:   name,
		claims: dedupe.NewInMemoryDeduper(),
	}
}

// AddVisit appends v to the history. It becomes the latest position.
func (e *Entity) AddVisit(v VisitRecord) {
	e.mu.Lock()
	e.visits = append(e.visits, v)
	e.mu.Unlock()
}

// Visits returns a copy of the history, oldest first.
func (e *Entity) Visits() []VisitRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]VisitRecord, len(e.visits))
	copy(out, e.visits)
	return out
}

// LastVisit returns the most recent visit, if any.
func (e *Entity) LastVisit() (VisitRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.visits) == 0 {
		return VisitRecord{}, false
	}
	return e.visits[len(e.visits)-1], true
}

// Rewards returns a copy of the committed rewards.
func (e *Entity) Rewards() []RewardRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]RewardRecord, len(e.rewards))
	copy(out, e.rewards)
	return out
}

// RewardPoints sums the points of every committed reward.
func (e *Entity) RewardPoints() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := 0
	for _, r := range e.rewards {
		total += r.Points
	}
	return total
}

// ClaimedRewards returns the attractions that are rewarded or currently
// being rewarded for e.
func (e *Entity) ClaimedRewards(ctx context.Context) map[uuid.UUID]struct{} {
	keys := e.claims.Keys(ctx)
	out := make(map[uuid.UUID]struct{}, len(keys))
	for _, k := range keys {
		id, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}

// ClaimReward reserves poiID for the caller. Only the caller that gets true
// may commit or release it.
func (e *Entity) ClaimReward(ctx context.Context, poiID uuid.UUID) bool {
	return !e.claims.SeenAndRecord(ctx, poiID.String())
}

// ReleaseReward gives up a claim whose reward could not be built.
func (e *Entity) ReleaseReward(ctx context.Context, poiID uuid.UUID) {
	e.claims.Unrecord(ctx, poiID.String())
}

// CommitReward appends r for a claimed attraction. It refuses a second
// record for the same attraction and reports whether r was appended.
func (e *Entity) CommitReward(r RewardRecord) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.rewards {
		if existing.Attraction.ID == r.Attraction.ID {
			return false
		}
	}
	e.rewards = append(e.rewards, r)
	return true
}
