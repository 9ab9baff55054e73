package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tourguide/internal/adapters/mq/worker"
	"github.com/okian/tourguide/internal/adapters/repository"
	"github.com/okian/tourguide/internal/domain/model"
	"github.com/okian/tourguide/pkg/logger"
	"github.com/okian/tourguide/pkg/metrics"
)

const (
	defaultTrackingInterval = 5 * time.Minute
	defaultErrorBuffer      = 64
)

// TrackerState is the lifecycle phase of a Tracker.
type TrackerState int32

// Tracker lifecycle phases. A stopped tracker cannot be restarted.
const (
	TrackerIdle TrackerState = iota
	TrackerRunning
	TrackerStopping
	TrackerStopped
)

func (s TrackerState) String() string {
	switch s {
	case TrackerIdle:
		return "idle"
	case TrackerRunning:
		return "running"
	case TrackerStopping:
		return "stopping"
	case TrackerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("TrackerState(%d)", int32(s))
	}
}

// EntityTracker refreshes one entity and evaluates its rewards.
type EntityTracker interface {
	TrackEntity(ctx context.Context, e *model.Entity) *worker.Future[model.VisitRecord]
}

// EntityError is a per-entity failure observed during a cycle.
type EntityError struct {
	Cycle  int64
	Entity string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("cycle %d: track %s: %v", e.Cycle, e.Entity, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// CycleReport summarises one completed pass over the roster.
type CycleReport struct {
	Cycle    int64
	Entities int
	Failures int
	Duration time.Duration
}

// Tracker periodically tracks every entity in a roster.
type Tracker struct {
	roster   repository.Roster
	tracker  EntityTracker
	interval time.Duration
	hook     func(CycleReport)

	mu    sync.Mutex
	state TrackerState
	stop  chan struct{}
	done  chan struct{}

	cycles atomic.Int64
	errs   chan error

	logger logger.Logger
}

// TrackerOption applies a configuration option to the Tracker.
type TrackerOption func(*Tracker)

// WithInterval sets the pause between two cycles.
func WithInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithCycleHook registers fn to run after every completed cycle.
func WithCycleHook(fn func(CycleReport)) TrackerOption {
	return func(t *Tracker) {
		t.hook = fn
	}
}

// WithErrorBuffer sets how many unread entity errors Errors keeps.
func WithErrorBuffer(n int) TrackerOption {
	return func(t *Tracker) {
		if n >= 0 {
			t.errs = make(chan error, n)
		}
	}
}

// WithTrackerLogger sets a custom logger for the tracker.
func WithTrackerLogger(l logger.Logger) TrackerOption {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTracker creates an idle tracker over roster.
func NewTracker(roster repository.Roster, tracker EntityTracker, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		roster:   roster,
		tracker:  tracker,
		interval: defaultTrackingInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		errs:     make(chan error, defaultErrorBuffer),
		logger:   logger.Get().Named("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the loop. Cancelling ctx abandons the running cycle.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TrackerIdle:
	case TrackerRunning:
		return ErrTrackerRunning
	default:
		return ErrTrackerStopped
	}
	t.state = TrackerRunning
	metrics.SetTrackerRunning(true)
	t.logger.Info(ctx, "tracker started", logger.Duration("interval", t.interval))

	go t.run(ctx)
	return nil
}

// Stop asks the loop to exit after the current cycle. It interrupts the
// pause between cycles and may be called any number of times. A cycle in
// flight is not interrupted: its barrier waits on the ctx given to Start, so
// a slow provider delays exit until every tracked entity resolves or that
// ctx ends. Service.Stop bounds this wait with its shutdown timeout.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TrackerIdle:
		t.state = TrackerStopped
		close(t.stop)
		close(t.done)
	case TrackerRunning:
		t.state = TrackerStopping
		close(t.stop)
	}
}

// Wait blocks until the loop has exited or ctx ends.
func (t *Tracker) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for tracker: %w", ctx.Err())
	}
}

// Done is closed once the loop has exited.
func (t *Tracker) Done() <-chan struct{} { return t.done }

// State returns the current lifecycle phase.
func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cycles returns the number of completed cycles.
func (t *Tracker) Cycles() int64 { return t.cycles.Load() }

// Errors delivers per-entity failures. Errors are dropped while the buffer is full.
func (t *Tracker) Errors() <-chan error { return t.errs }

func (t *Tracker) run(ctx context.Context) {
	defer func() {
		t.mu.Lock()
		t.state = TrackerStopped
		t.mu.Unlock()
		metrics.SetTrackerRunning(false)
		t.logger.Info(context.Background(), "tracker stopped", logger.Int64("cycles", t.cycles.Load()))
		close(t.done)
	}()

	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		t.cycle(ctx)

		timer := time.NewTimer(t.interval)
		select {
		case <-t.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// cycle tracks every entity of one roster snapshot and waits for all of them.
func (t *Tracker) cycle(ctx context.Context) {
	start := time.Now()
	n := t.cycles.Load() + 1

	entities := t.roster.All(ctx)
	metrics.UpdateTrackedEntities(len(entities))
	t.logger.Debug(ctx, "cycle started", logger.Int64("cycle", n), logger.Int("entities", len(entities)))

	futures := make([]*worker.Future[model.VisitRecord], len(entities))
	for i, e := range entities {
		futures[i] = t.tracker.TrackEntity(ctx, e)
	}

	failures := 0
	for i, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				t.logger.Warn(ctx, "cycle abandoned", logger.Int64("cycle", n), logger.Int("pending", len(futures)-i))
				return
			}
			failures++
			t.report(ctx, &EntityError{Cycle: n, Entity: entities[i].Name, Err: err})
		}
	}

	took := time.Since(start)
	t.cycles.Store(n)
	metrics.RecordCycle(float64(took.Milliseconds()))
	t.logger.Info(ctx, "cycle finished",
		logger.Int64("cycle", n),
		logger.Int("entities", len(entities)),
		logger.Int("failures", failures),
		logger.Duration("took", took),
	)
	if t.hook != nil {
		t.hook(CycleReport{Cycle: n, Entities: len(entities), Failures: failures, Duration: took})
	}
}

func (t *Tracker) report(ctx context.Context, err *EntityError) {
	metrics.RecordErrorByComponent("tracker", "entity")
	t.logger.Warn(ctx, "entity tracking failed",
		logger.Int64("cycle", err.Cycle),
		logger.String("entity", err.Entity),
		logger.Error(err.Err),
	)
	select {
	case t.errs <- err:
	default:
	}
}
