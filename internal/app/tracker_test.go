package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tourguide/internal/adapters/mq/queue"
	"github.com/okian/tourguide/internal/adapters/mq/worker"
	"github.com/okian/tourguide/internal/adapters/repository"
	service "github.com/okian/tourguide/internal/app"
	"github.com/okian/tourguide/internal/domain/model"
)

// countingTracker resolves every future immediately and fails the named entities.
type countingTracker struct {
	mu      sync.Mutex
	tracked map[string]int
	failing map[string]bool
	delay   time.Duration
}

func newCountingTracker(failing ...string) *countingTracker {
	ct := &countingTracker{tracked: map[string]int{}, failing: map[string]bool{}}
	for _, name := range failing {
		ct.failing[name] = true
	}
	return ct
}

func (c *countingTracker) TrackEntity(_ context.Context, e *model.Entity) *worker.Future[model.VisitRecord] {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	c.tracked[e.Name]++
	fail := c.failing[e.Name]
	c.mu.Unlock()
	if fail {
		return worker.Resolved(model.VisitRecord{}, fmt.Errorf("%w: %s", model.ErrProviderUnavailable, e.Name))
	}
	return worker.Resolved(model.VisitRecord{EntityID: e.ID}, nil)
}

func (c *countingTracker) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracked[name]
}

func rosterOf(names ...string) *repository.MemoryRoster {
	r := repository.NewMemoryRoster()
	for _, n := range names {
		_, _, _ = r.Add(context.Background(), model.NewEntity(uuid.New(), n))
	}
	return r
}

func TestTracker_Lifecycle(t *testing.T) {
	Convey("Given an idle tracker", t, func() {
		ctx := context.Background()
		tr := service.NewTracker(rosterOf("a"), newCountingTracker(), service.WithInterval(time.Hour))
		So(tr.State(), ShouldEqual, service.TrackerIdle)

		Convey("When stopped before it ever started", func() {
			tr.Stop()

			Convey("Then it is stopped and cannot start", func() {
				So(tr.State(), ShouldEqual, service.TrackerStopped)
				So(tr.Wait(ctx), ShouldBeNil)
				So(errors.Is(tr.Start(ctx), service.ErrTrackerStopped), ShouldBeTrue)
			})
		})

		Convey("When started twice", func() {
			So(tr.Start(ctx), ShouldBeNil)
			err := tr.Start(ctx)
			tr.Stop()

			Convey("Then the second start is rejected", func() {
				So(errors.Is(err, service.ErrTrackerRunning), ShouldBeTrue)
			})
		})
	})
}

func TestTracker_StopInterruptsSleep(t *testing.T) {
	Convey("Given a running tracker with a long interval", t, func() {
		ctx := context.Background()
		first := make(chan struct{}, 1)
		tr := service.NewTracker(rosterOf("a", "b"), newCountingTracker(),
			service.WithInterval(time.Hour),
			service.WithCycleHook(func(service.CycleReport) {
				select {
				case first <- struct{}{}:
				default:
				}
			}),
		)
		So(tr.Start(ctx), ShouldBeNil)

		select {
		case <-first:
		case <-time.After(2 * time.Second):
			t.Fatal("first cycle never completed")
		}

		Convey("When stopping twice", func() {
			start := time.Now()
			tr.Stop()
			tr.Stop()
			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			err := tr.Wait(waitCtx)

			Convey("Then the loop exits promptly after exactly one cycle", func() {
				So(err, ShouldBeNil)
				So(time.Since(start), ShouldBeLessThan, time.Second)
				So(tr.State(), ShouldEqual, service.TrackerStopped)
				So(tr.Cycles(), ShouldEqual, int64(1))
			})

			Convey("Then no further cycle starts", func() {
				time.Sleep(50 * time.Millisecond)
				So(tr.Cycles(), ShouldEqual, int64(1))
			})
		})
	})
}

func TestTracker_Cycles(t *testing.T) {
	Convey("Given a fast tracker where one entity always fails", t, func() {
		ctx := context.Background()
		ct := newCountingTracker("broken")
		var reports []service.CycleReport
		var mu sync.Mutex
		var cycles atomic.Int32
		enough := make(chan struct{})

		tr := service.NewTracker(rosterOf("ok1", "broken", "ok2"), ct,
			service.WithInterval(5*time.Millisecond),
			service.WithCycleHook(func(r service.CycleReport) {
				mu.Lock()
				reports = append(reports, r)
				mu.Unlock()
				if cycles.Add(1) == 3 {
					close(enough)
				}
			}),
		)
		So(tr.Start(ctx), ShouldBeNil)

		select {
		case <-enough:
		case <-time.After(2 * time.Second):
			t.Fatal("tracker did not complete three cycles")
		}
		tr.Stop()
		So(tr.Wait(ctx), ShouldBeNil)

		Convey("Then every cycle tracked every entity despite the failure", func() {
			n := int(tr.Cycles())
			So(n, ShouldBeGreaterThanOrEqualTo, 3)
			So(ct.count("ok1"), ShouldEqual, n)
			So(ct.count("ok2"), ShouldEqual, n)
			So(ct.count("broken"), ShouldEqual, n)

			mu.Lock()
			defer mu.Unlock()
			for i, r := range reports {
				So(r.Cycle, ShouldEqual, int64(i+1))
				So(r.Entities, ShouldEqual, 3)
				So(r.Failures, ShouldEqual, 1)
			}
		})

		Convey("Then the failure is published on the error channel", func() {
			select {
			case err := <-tr.Errors():
				var ee *service.EntityError
				So(errors.As(err, &ee), ShouldBeTrue)
				So(ee.Entity, ShouldEqual, "broken")
				So(errors.Is(err, model.ErrProviderUnavailable), ShouldBeTrue)
			default:
				t.Fatal("expected an entity error")
			}
		})
	})
}

func TestTracker_ContextCancel(t *testing.T) {
	Convey("Given a running tracker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		tr := service.NewTracker(rosterOf("a"), newCountingTracker(), service.WithInterval(time.Hour))
		So(tr.Start(ctx), ShouldBeNil)

		Convey("When its context is cancelled", func() {
			cancel()

			Convey("Then the loop exits", func() {
				select {
				case <-tr.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("tracker did not exit on cancel")
				}
				So(tr.State(), ShouldEqual, service.TrackerStopped)
			})
		})
	})
}

func TestTrackerState_String(t *testing.T) {
	Convey("Tracker states have readable names", t, func() {
		So(service.TrackerIdle.String(), ShouldEqual, "idle")
		So(service.TrackerRunning.String(), ShouldEqual, "running")
		So(service.TrackerStopping.String(), ShouldEqual, "stopping")
		So(service.TrackerStopped.String(), ShouldEqual, "stopped")
	})
}

// goSubmitter runs every task on its own goroutine.
type goSubmitter struct{}

func (goSubmitter) Submit(ctx context.Context, task queue.Task) error {
	go task(ctx)
	return nil
}

// gatedTracker holds every entity until gate is closed.
type gatedTracker struct {
	started chan struct{}
	once    sync.Once
	gate    chan struct{}
}

func (g *gatedTracker) TrackEntity(ctx context.Context, e *model.Entity) *worker.Future[model.VisitRecord] {
	return worker.Go(ctx, goSubmitter{}, func(context.Context) (model.VisitRecord, error) {
		g.once.Do(func() { close(g.started) })
		<-g.gate
		return model.VisitRecord{EntityID: e.ID}, nil
	})
}

func TestTracker_StopDuringCycle(t *testing.T) {
	Convey("Given a tracker whose first cycle is still in flight", t, func() {
		ctx := context.Background()
		gt := &gatedTracker{started: make(chan struct{}), gate: make(chan struct{})}
		tr := service.NewTracker(rosterOf("slow"), gt, service.WithInterval(time.Hour))
		So(tr.Start(ctx), ShouldBeNil)

		select {
		case <-gt.started:
		case <-time.After(time.Second):
			t.Fatal("cycle never started")
		}

		Convey("When Stop is called", func() {
			tr.Stop()
			shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			waitErr := tr.Wait(shortCtx)

			Convey("Then the loop waits for the cycle before exiting", func() {
				So(errors.Is(waitErr, context.DeadlineExceeded), ShouldBeTrue)
				So(tr.State(), ShouldEqual, service.TrackerStopping)

				close(gt.gate)
				So(tr.Wait(ctx), ShouldBeNil)
				So(tr.Cycles(), ShouldEqual, int64(1))
				So(tr.State(), ShouldEqual, service.TrackerStopped)
			})
		})
	})
}
