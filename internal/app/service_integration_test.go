package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tourguide/internal/adapters/gps"
	"github.com/okian/tourguide/internal/adapters/rewardcentral"
	service "github.com/okian/tourguide/internal/app"
	"github.com/okian/tourguide/internal/domain/geo"
	"github.com/okian/tourguide/internal/domain/model"
	"github.com/okian/tourguide/internal/seed"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over the simulated collaborators and 100 seeded users", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cycles := make(chan service.CycleReport, 16)
		svc := service.New(
			gps.NewProvider(gps.WithLatencyRange(0, time.Millisecond)),
			gps.NewCatalog(),
			fastOracle(),
			service.WithWorkerCount(16),
			service.WithQueueSize(32),
			service.WithTrackingInterval(time.Hour),
			service.WithTrackerOptions(service.WithCycleHook(func(r service.CycleReport) {
				cycles <- r
			})),
		)
		defer svc.Stop()

		for _, u := range seedUsers(100) {
			_, err := svc.StartTracking(ctx, u)
			So(err, ShouldBeNil)
		}

		Convey("When the service starts", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then the first cycle tracks every user", func() {
				var report service.CycleReport
				select {
				case report = <-cycles:
				case <-ctx.Done():
					t.Fatal("first cycle did not finish")
				}
				So(report.Entities, ShouldEqual, 100)
				So(report.Failures, ShouldEqual, 0)

				for _, u := range svc.Users(ctx) {
					So(len(u.Visits()), ShouldEqual, seed.DefaultVisitsPerUser+1)
				}
				stats := svc.Stats(ctx)
				So(stats.Cycles, ShouldEqual, int64(1))
				So(stats.TrackedEntities, ShouldEqual, 100)
				So(stats.TrackerState, ShouldEqual, "running")
			})

			Convey("Then StopTracking halts the loop", func() {
				svc.StopTracking()
				So(svc.Tracker().Wait(ctx), ShouldBeNil)
				So(svc.Stats(ctx).TrackerState, ShouldEqual, "stopped")
			})
		})
	})
}

func TestServiceIntegration_RewardsUnderLoad(t *testing.T) {
	Convey("Given 100 users each standing on an attraction", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		catalog := gps.NewCatalog()
		pois, _ := catalog.Attractions(ctx)
		svc := service.New(&stubProvider{at: model.Coordinate{Latitude: -60, Longitude: 0}}, catalog, fastOracle(),
			service.WithWorkerCount(16),
			service.WithTracking(false),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		users := make([]*model.Entity, 100)
		for i := range users {
			users[i] = model.NewEntity(uuid.New(), fmt.Sprintf("internalUser%d", i))
			users[i].AddVisit(model.VisitRecord{EntityID: users[i].ID, Coordinate: pois[i%len(pois)].Coordinate})
			_, _ = svc.StartTracking(ctx, users[i])
		}

		Convey("When the buffer is infinite and everyone is evaluated repeatedly in parallel", func() {
			So(svc.SetProximityBuffer(math.Inf(1)), ShouldBeNil)
			for round := 0; round < 3; round++ {
				So(svc.TrackAll(ctx), ShouldBeNil)
			}

			Convey("Then each user holds exactly one reward per attraction", func() {
				for _, u := range users {
					got := svc.Rewards(u)
					So(len(got), ShouldEqual, len(pois))
					seen := map[uuid.UUID]bool{}
					for _, r := range got {
						So(seen[r.Attraction.ID], ShouldBeFalse)
						seen[r.Attraction.ID] = true
					}
				}
			})
		})

		Convey("When the default buffer applies", func() {
			So(svc.TrackAll(ctx), ShouldBeNil)

			Convey("Then each user is rewarded for the attraction they stood on", func() {
				for i, u := range users {
					want := pois[i%len(pois)]
					found := false
					for _, r := range svc.Rewards(u) {
						found = found || r.Attraction.ID == want.ID
						// The Flatiron Building and the Bronx Zoo are under ten miles apart.
						So(geo.Distance(r.Attraction.Coordinate, want.Coordinate), ShouldBeLessThanOrEqualTo, 10)
					}
					So(found, ShouldBeTrue)
				}
			})
		})
	})
}

func TestServiceIntegration_UnreliableCollaborators(t *testing.T) {
	Convey("Given a tracker over collaborators that fail a third of their calls", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cycles := make(chan service.CycleReport, 64)
		svc := service.New(
			gps.NewProvider(gps.WithLatencyRange(0, 0), gps.WithSeed(11), gps.WithFailureRate(0.3)),
			gps.NewCatalog(),
			rewardcentral.NewOracle(rewardcentral.WithLatencyRange(0, 0), rewardcentral.WithSeed(11), rewardcentral.WithFailureRate(0.3)),
			service.WithWorkerCount(8),
			service.WithProximityBuffer(math.Inf(1)),
			service.WithTrackingInterval(5*time.Millisecond),
			service.WithTrackerOptions(
				service.WithErrorBuffer(1024),
				service.WithCycleHook(func(r service.CycleReport) {
					select {
					case cycles <- r:
					default:
					}
				}),
			),
		)
		defer svc.Stop()

		for _, u := range seedUsers(20) {
			_, err := svc.StartTracking(ctx, u)
			So(err, ShouldBeNil)
		}
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When several cycles have run", func() {
			failures := 0
			for i := 0; i < 5; i++ {
				select {
				case r := <-cycles:
					So(r.Entities, ShouldEqual, 20)
					failures += r.Failures
				case <-ctx.Done():
					t.Fatal("tracker stalled")
				}
			}
			svc.StopTracking()
			So(svc.Tracker().Wait(ctx), ShouldBeNil)

			Convey("Then failures were isolated per entity and the loop kept going", func() {
				So(failures, ShouldBeGreaterThan, 0)
				So(svc.Tracker().Cycles(), ShouldBeGreaterThanOrEqualTo, int64(5))

				drained := 0
				for done := false; !done; {
					select {
					case err := <-svc.Tracker().Errors():
						drained++
						var entityErr *service.EntityError
						So(errors.As(err, &entityErr), ShouldBeTrue)
						So(errors.Is(err, model.ErrProviderUnavailable) || errors.Is(err, model.ErrOracleUnavailable), ShouldBeTrue)
					default:
						done = true
					}
				}
				So(drained, ShouldBeGreaterThan, 0)
			})

			Convey("Then no user holds two rewards for one attraction", func() {
				for _, u := range svc.Users(ctx) {
					seen := map[uuid.UUID]bool{}
					for _, r := range u.Rewards() {
						So(seen[r.Attraction.ID], ShouldBeFalse)
						seen[r.Attraction.ID] = true
					}
					So(len(seen), ShouldBeLessThanOrEqualTo, 26)
				}
			})
		})
	})
}

func seedUsers(n int) []*model.Entity {
	g := seed.NewGenerator(seed.WithSeed(3))
	out := make([]*model.Entity, n)
	for i := range out {
		out[i] = g.User(i)
	}
	return out
}
