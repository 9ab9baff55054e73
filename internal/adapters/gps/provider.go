package gps

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tourguide/internal/domain/model"
)

// Bounds of generated coordinates. Latitude stops at the Web Mercator limit.
const (
	MaxLatitude  = 85.05112878
	MaxLongitude = 180.0
)

const (
	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 60 * time.Millisecond
	defaultRandomSeed = 42
)

// Provider reports a random position for any entity.
type Provider struct {
	minLatency time.Duration
	maxLatency time.Duration
	failRate   float64
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProvider creates a simulated location provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		now:        time.Now,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // simulated data
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Locate returns the current position of entityID. With a failure rate set,
// some calls fail with model.ErrProviderUnavailable after the usual delay.
func (p *Provider) Locate(ctx context.Context, entityID uuid.UUID) (model.VisitRecord, error) {
	p.mu.Lock()
	latency := p.minLatency
	if span := p.maxLatency - p.minLatency; span > 0 {
		latency += time.Duration(p.rng.Int63n(int64(span)))
	}
	lat := (p.rng.Float64()*2 - 1) * MaxLatitude
	lon := (p.rng.Float64()*2 - 1) * MaxLongitude
	fail := p.failRate > 0 && p.rng.Float64() < p.failRate
	p.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.VisitRecord{}, fmt.Errorf("locate %s: %w", entityID, ctx.Err())
		case <-timer.C:
		}
	}
	if fail {
		return model.VisitRecord{}, fmt.Errorf("%w: locate %s: simulated outage", model.ErrProviderUnavailable, entityID)
	}

	return model.VisitRecord{
		EntityID:   entityID,
		Coordinate: model.Coordinate{Latitude: lat, Longitude: lon},
		Timestamp:  p.now(),
	}, nil
}
