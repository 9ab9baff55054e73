// Package seed fills a roster with generated users for local runs and tests.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tourguide/internal/adapters/gps"
	"github.com/okian/tourguide/internal/adapters/repository"
	"github.com/okian/tourguide/internal/domain/model"
)

// Defaults for generated users.
const (
	DefaultVisitsPerUser = 3
	historyWindow        = 30 * 24 * time.Hour
	defaultRandomSeed    = 42
)

// Generator builds internal users with a short random visit history.
type Generator struct {
	visits int
	now    func() time.Time
	rng    *rand.Rand
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithVisitsPerUser sets the history length of each user.
func WithVisitsPerUser(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.visits = n
		}
	}
}

// WithSeed makes generated users reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	}
}

// WithClock sets the reference time of the history window.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a generator. It is not safe for concurrent use.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		visits: DefaultVisitsPerUser,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // test data
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// User returns internalUser<i> with a random history.
func (g *Generator) User(i int) *model.Entity {
	e := model.NewEntity(uuid.New(), fmt.Sprintf("internalUser%d", i))
	now := g.now()
	for v := 0; v < g.visits; v++ {
		e.AddVisit(model.VisitRecord{
			EntityID: e.ID,
			Coordinate: model.Coordinate{
				Latitude:  (g.rng.Float64()*2 - 1) * gps.MaxLatitude,
				Longitude: (g.rng.Float64()*2 - 1) * gps.MaxLongitude,
			},
			Timestamp: now.Add(-time.Duration(g.rng.Int63n(int64(historyWindow)))),
		})
	}
	return e
}

// Populate adds count generated users to roster and returns how many were new.
func (g *Generator) Populate(ctx context.Context, roster repository.Roster, count int) (int, error) {
	added := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return added, fmt.Errorf("populate: %w", err)
		}
		_, ok, err := roster.Add(ctx, g.User(i))
		if err != nil {
			return added, fmt.Errorf("populate: %w", err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}
