// Package rewardcentral simulates the reward oracle that prices attractions.
package rewardcentral

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tourguide/internal/domain/model"
)

// Default oracle configuration constants.
const (
	MinPoints = 1
	MaxPoints = 1000

	defaultMinLatency = 5 * time.Millisecond
	defaultMaxLatency = 20 * time.Millisecond
	defaultRandomSeed = 42
)

// Oracle returns a random number of points after a short delay.
type Oracle struct {
	minLatency time.Duration
	maxLatency time.Duration
	failRate   float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewOracle creates a simulated reward oracle with configuration options.
func NewOracle(opts ...Option) *Oracle {
	o := &Oracle{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible testing
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Points returns the reward for entityID at poiID, between MinPoints and MaxPoints.
func (o *Oracle) Points(ctx context.Context, poiID, entityID uuid.UUID) (int, error) {
	o.mu.Lock()
	latency := o.minLatency
	if span := o.maxLatency - o.minLatency; span > 0 {
		latency += time.Duration(o.rng.Int63n(int64(span)))
	}
	points := MinPoints + o.rng.Intn(MaxPoints-MinPoints+1)
	fail := o.failRate > 0 && o.rng.Float64() < o.failRate
	o.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("points for %s at %s: %w", entityID, poiID, ctx.Err())
		case <-timer.C:
		}
	}
	if fail {
		return 0, fmt.Errorf("%w: points for %s at %s: simulated outage", model.ErrOracleUnavailable, entityID, poiID)
	}
	return points, nil
}
