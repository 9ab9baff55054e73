// Package service tracks entity positions and awards attraction rewards.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/tourguide/internal/adapters/mq/queue"
	"github.com/okian/tourguide/internal/adapters/mq/worker"
	"github.com/okian/tourguide/internal/adapters/repository"
	"github.com/okian/tourguide/internal/domain/model"
	"github.com/okian/tourguide/internal/domain/rewards"
	"github.com/okian/tourguide/pkg/logger"
	"github.com/okian/tourguide/pkg/metrics"
)

const (
	defaultWorkerCount     = 100
	defaultQueueSize       = 10_000
	defaultNearbyLimit     = 5
	defaultShutdownTimeout = 30 * time.Second
)

// LocationProvider reports where an entity currently is.
type LocationProvider interface {
	Locate(ctx context.Context, entityID uuid.UUID) (model.VisitRecord, error)
}

// Stats is a point-in-time view of the service for monitoring.
type Stats struct {
	Started         bool   `json:"started"`
	TrackerState    string `json:"tracker_state"`
	Cycles          int64  `json:"cycles"`
	TrackedEntities int    `json:"tracked_entities"`
	Workers         int    `json:"workers"`
	BusyWorkers     int    `json:"busy_workers"`
	QueueLength     int    `json:"queue_length"`
	QueueCapacity   int    `json:"queue_capacity"`
	ProximityBuffer string `json:"proximity_buffer_miles"`
}

// Service wires the roster, the reward evaluator, the worker pool and the
// periodic tracker together.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	provider LocationProvider
	catalog  rewards.Catalog
	oracle   rewards.Oracle

	// Core components
	roster    repository.Roster
	evaluator *rewards.Evaluator
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	tracker   *Tracker

	// Configuration
	workerCount     int
	queueSize       int
	interval        time.Duration
	proximityBuffer float64
	attractionRange float64
	nearbyLimit     int
	tracking        bool
	trackerOpts     []TrackerOption
	shutdownTimeout time.Duration

	// State
	started bool
	stopped bool

	logger logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(provider LocationProvider, catalog rewards.Catalog, oracle rewards.Oracle, opts ...Option) *Service {
	s := &Service{
		provider:        provider,
		catalog:         catalog,
		oracle:          oracle,
		roster:          repository.NewMemoryRoster(),
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		interval:        defaultTrackingInterval,
		proximityBuffer: rewards.DefaultProximityBuffer,
		attractionRange: rewards.DefaultAttractionRange,
		nearbyLimit:     defaultNearbyLimit,
		tracking:        true,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.evaluator = rewards.NewEvaluator(catalog, oracle,
		rewards.WithDefaultProximityBuffer(s.proximityBuffer),
		rewards.WithAttractionRange(s.attractionRange),
		rewards.WithLogger(s.logger.Named("rewards")),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.WithPoolLogger(s.logger.Named("pool")))

	trackerOpts := append([]TrackerOption{
		WithInterval(s.interval),
		WithTrackerLogger(s.logger.Named("tracker")),
	}, s.trackerOpts...)
	s.tracker = NewTracker(s.roster, s, trackerOpts...)
	return s
}

// Start starts the worker pool and, unless disabled or already stopped, the
// periodic tracker. Canceling ctx later closes the pool: pending and new
// TrackEntity calls resolve with queue.ErrStopped and Ready turns false.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServiceStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting tracking service...")
	if s.tracking {
		switch err := s.tracker.Start(ctx); {
		case err == nil:
		case errors.Is(err, ErrTrackerStopped):
			s.logger.Info(ctx, "periodic tracking already stopped, serving direct calls only")
		default:
			return fmt.Errorf("start tracker: %w", err)
		}
	}
	// The tracker's first cycle blocks on s.mu until the pool is up.
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "tracking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("interval", s.interval),
		logger.Bool("tracking", s.tracking),
	)
	return nil
}

// Stop stops the tracker, lets in-flight tasks finish and shuts the pool down.
// Calling it more than once is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping tracking service...")

	// The running cycle still submits to the pool, so the tracker goes first.
	s.tracker.Stop()
	waitCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	if err := s.tracker.Wait(waitCtx); err != nil {
		s.logger.Warn(ctx, "tracker did not stop in time", logger.Error(err))
	}
	cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool did not stop in time", logger.Error(err))
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.logger.Info(ctx, "tracking service stopped")
}

// Roster returns the tracked entities.
func (s *Service) Roster() repository.Roster { return s.roster }

// Tracker returns the periodic tracker.
func (s *Service) Tracker() *Tracker { return s.tracker }

// StopTracking stops the periodic tracker. The worker pool keeps serving
// direct TrackEntity calls.
func (s *Service) StopTracking() {
	s.tracker.Stop()
}

// StartTracking adds e to the roster. Tracking a name twice keeps the first
// entity, which is returned.
func (s *Service) StartTracking(ctx context.Context, e *model.Entity) (*model.Entity, error) {
	tracked, added, err := s.roster.Add(ctx, e)
	if err != nil {
		return nil, err
	}
	if added {
		s.logger.Debug(ctx, "tracking entity", logger.String("entity", e.Name))
	}
	return tracked, nil
}

// User returns the tracked entity called name.
func (s *Service) User(ctx context.Context, name string) (*model.Entity, error) {
	return s.roster.Get(ctx, name)
}

// Users returns every tracked entity.
func (s *Service) Users(ctx context.Context) []*model.Entity {
	return s.roster.All(ctx)
}

// TrackEntity fetches e's position on the pool, records it and evaluates
// rewards. The future resolves after both steps. A reward failure still
// yields the captured visit alongside the error.
func (s *Service) TrackEntity(ctx context.Context, e *model.Entity) *worker.Future[model.VisitRecord] {
	if !s.isStarted() {
		return worker.Resolved(model.VisitRecord{}, ErrNotStarted)
	}
	return worker.Go(ctx, s.pool, func(ctx context.Context) (model.VisitRecord, error) {
		start := time.Now()
		v, err := s.provider.Locate(ctx, e.ID)
		metrics.RecordLocationLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordLocationError()
			if errors.Is(err, model.ErrProviderUnavailable) {
				return model.VisitRecord{}, fmt.Errorf("locate %s: %w", e.Name, err)
			}
			return model.VisitRecord{}, fmt.Errorf("%w: locate %s: %w", model.ErrProviderUnavailable, e.Name, err)
		}

		e.AddVisit(v)
		if err := s.evaluator.Evaluate(ctx, e); err != nil {
			return v, fmt.Errorf("rewards for %s: %w", e.Name, err)
		}
		return v, nil
	})
}

// TrackAll tracks every entity once and waits for all of them.
func (s *Service) TrackAll(ctx context.Context) error {
	entities := s.roster.All(ctx)
	futures := make([]*worker.Future[model.VisitRecord], len(entities))
	for i, e := range entities {
		futures[i] = s.TrackEntity(ctx, e)
	}
	_, errs, err := worker.WaitAll(ctx, futures)
	if err != nil {
		return fmt.Errorf("track all: %w", err)
	}
	return errors.Join(errs...)
}

// Location returns e's latest visit, tracking it first when it has none.
func (s *Service) Location(ctx context.Context, e *model.Entity) (model.VisitRecord, error) {
	if v, ok := e.LastVisit(); ok {
		return v, nil
	}
	return s.TrackEntity(ctx, e).Wait(ctx)
}

// Rewards returns the rewards e has earned.
func (s *Service) Rewards(e *model.Entity) []model.RewardRecord {
	return e.Rewards()
}

// TotalPoints sums e's reward points.
func (s *Service) TotalPoints(e *model.Entity) int {
	return e.RewardPoints()
}

// EvaluateRewards runs the reward evaluator for e synchronously.
func (s *Service) EvaluateRewards(ctx context.Context, e *model.Entity) error {
	return s.evaluator.Evaluate(ctx, e)
}

// SetProximityBuffer changes the reward radius for later evaluations.
func (s *Service) SetProximityBuffer(miles float64) error {
	if err := s.evaluator.SetProximityBuffer(miles); err != nil {
		return err
	}
	s.logger.Info(context.Background(), "proximity buffer changed", logger.Float64("miles", miles))
	return nil
}

// ResetProximityBuffer restores the configured reward radius.
func (s *Service) ResetProximityBuffer() {
	s.evaluator.ResetProximityBuffer()
}

// NearbyAttractions returns the limit attractions closest to e with the
// points each would award. A non-positive limit uses the configured default.
func (s *Service) NearbyAttractions(ctx context.Context, e *model.Entity, limit int) ([]model.NearbyAttraction, error) {
	if limit <= 0 {
		limit = s.nearbyLimit
	}
	v, err := s.Location(ctx, e)
	if err != nil {
		return nil, err
	}
	pois, err := s.catalog.Attractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attractions: %w", err)
	}
	nearby := rewards.Closest(pois, v.Coordinate, limit)

	g, gctx := errgroup.WithContext(ctx)
	for i := range nearby {
		i := i
		g.Go(func() error {
			points, err := s.oracle.Points(gctx, nearby[i].Attraction.ID, e.ID)
			if err != nil {
				metrics.RecordOracleError()
				return fmt.Errorf("%w: %s: %w", model.ErrOracleUnavailable, nearby[i].Attraction.Name, err)
			}
			nearby[i].Points = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nearby, nil
}

// Stats returns a snapshot of the service state.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	return Stats{
		Started:         started && !s.pool.Closed(),
		TrackerState:    s.tracker.State().String(),
		Cycles:          s.tracker.Cycles(),
		TrackedEntities: s.roster.Count(ctx),
		Workers:         s.pool.Size(),
		BusyWorkers:     s.pool.Busy(),
		QueueLength:     s.pool.Pending(ctx),
		QueueCapacity:   s.queue.Cap(),
		ProximityBuffer: strconv.FormatFloat(s.evaluator.ProximityBuffer(), 'f', -1, 64),
	}
}

// Ready reports whether the service is started and accepting work.
func (s *Service) Ready() bool {
	return s.isStarted() && !s.pool.Closed()
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
