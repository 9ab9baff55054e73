// Package rewards decides which attractions an entity has earned points for.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tourguide/internal/domain/geo"
	"github.com/okian/tourguide/internal/domain/model"
	"github.com/okian/tourguide/pkg/logger"
	"github.com/okian/tourguide/pkg/metrics"
)

// Default proximity settings, in statute miles.
const (
	DefaultProximityBuffer = 10.0
	DefaultAttractionRange = 200.0
)

// Catalog lists the attractions that can yield a reward.
type Catalog interface {
	Attractions(ctx context.Context) ([]model.PointOfInterest, error)
}

// Oracle prices a reward for an entity at an attraction.
type Oracle interface {
	Points(ctx context.Context, poiID, entityID uuid.UUID) (int, error)
}

// Evaluator awards each entity at most one reward per attraction.
type Evaluator struct {
	catalog Catalog
	oracle  Oracle

	defaultBuffer   float64
	attractionRange float64
	buffer          atomic.Uint64 // math.Float64bits of the current buffer

	logger logger.Logger
}

// NewEvaluator creates an evaluator backed by catalog and oracle.
func NewEvaluator(catalog Catalog, oracle Oracle, opts ...Option) *Evaluator {
	ev := &Evaluator{
		catalog:         catalog,
		oracle:          oracle,
		defaultBuffer:   DefaultProximityBuffer,
		attractionRange: DefaultAttractionRange,
		logger:          logger.Get().Named("rewards"),
	}
	for _, opt := range opts {
		opt(ev)
	}
	ev.buffer.Store(math.Float64bits(ev.defaultBuffer))
	return ev
}

// ProximityBuffer returns the current reward radius in miles.
func (ev *Evaluator) ProximityBuffer() float64 {
	return math.Float64frombits(ev.buffer.Load())
}

// SetProximityBuffer changes the reward radius. +Inf rewards every attraction.
func (ev *Evaluator) SetProximityBuffer(miles float64) error {
	if math.IsNaN(miles) || miles < 0 {
		return fmt.Errorf("%w: proximity buffer %v", model.ErrInvalidConfiguration, miles)
	}
	ev.buffer.Store(math.Float64bits(miles))
	return nil
}

// ResetProximityBuffer restores the configured default radius.
func (ev *Evaluator) ResetProximityBuffer() {
	ev.buffer.Store(math.Float64bits(ev.defaultBuffer))
}

// WithinRange reports whether coord is inside the attraction range of poi.
// The range is fixed and ignores the proximity buffer.
func (ev *Evaluator) WithinRange(poi model.PointOfInterest, coord model.Coordinate) bool {
	return geo.Distance(poi.Coordinate, coord) <= ev.attractionRange
}

// Evaluate rewards e for every unrewarded attraction near one of its visits.
// Oracle failures do not stop other attractions from being evaluated; they
// are joined into the returned error and their claims are released so a
// later pass can retry.
func (ev *Evaluator) Evaluate(ctx context.Context, e *model.Entity) error {
	start := time.Now()
	defer func() {
		metrics.RecordEvaluationDuration(float64(time.Since(start).Milliseconds()))
	}()

	attractions, err := ev.catalog.Attractions(ctx)
	if err != nil {
		return fmt.Errorf("list attractions: %w", err)
	}
	claimed := e.ClaimedRewards(ctx)
	visits := e.Visits()
	buffer := ev.ProximityBuffer()

	var errs []error
	for _, poi := range attractions {
		if _, ok := claimed[poi.ID]; ok {
			continue
		}
		for _, v := range visits {
			if geo.Distance(v.Coordinate, poi.Coordinate) > buffer {
				continue
			}
			if err := ctx.Err(); err != nil {
				return errors.Join(append(errs, err)...)
			}
			if err := ev.award(ctx, e, v, poi); err != nil {
				errs = append(errs, err)
			}
			break
		}
	}
	return errors.Join(errs...)
}

func (ev *Evaluator) award(ctx context.Context, e *model.Entity, v model.VisitRecord, poi model.PointOfInterest) error {
	if !e.ClaimReward(ctx, poi.ID) {
		metrics.RecordRewardClaimConflict()
		return nil
	}

	start := time.Now()
	points, err := ev.oracle.Points(ctx, poi.ID, e.ID)
	metrics.RecordOracleLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		e.ReleaseReward(ctx, poi.ID)
		metrics.RecordOracleError()
		ev.logger.Warn(ctx, "reward points unavailable",
			logger.String("entity", e.Name),
			logger.String("attraction", poi.Name),
			logger.Error(err),
		)
		if errors.Is(err, model.ErrOracleUnavailable) {
			return fmt.Errorf("attraction %s: %w", poi.Name, err)
		}
		return fmt.Errorf("%w: attraction %s: %w", model.ErrOracleUnavailable, poi.Name, err)
	}

	if !e.CommitReward(model.RewardRecord{Visit: v, Attraction: poi, Points: points}) {
		metrics.RecordRewardClaimConflict()
		return nil
	}
	metrics.RecordRewardIssued()
	ev.logger.Debug(ctx, "reward issued",
		logger.String("entity", e.Name),
		logger.String("attraction", poi.Name),
		logger.Int("points", points),
	)
	return nil
}

// Closest ranks attractions by distance from 'from' and keeps the first limit.
// A non-positive limit keeps them all.
func Closest(attractions []model.PointOfInterest, from model.Coordinate, limit int) []model.NearbyAttraction {
	out := make([]model.NearbyAttraction, 0, len(attractions))
	for _, poi := range attractions {
		out = append(out, model.NearbyAttraction{
			Attraction:    poi,
			From:          from,
			DistanceMiles: geo.Distance(from, poi.Coordinate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMiles < out[j].DistanceMiles
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
