package geo_test

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tourguide/internal/domain/geo"
	"github.com/okian/tourguide/internal/domain/model"
)

func TestDistance(t *testing.T) {
	Convey("Given coordinates", t, func() {
		disneyland := model.Coordinate{Latitude: 33.817595, Longitude: -117.922008}
		jackson := model.Coordinate{Latitude: 43.582767, Longitude: -110.821999}

		Convey("When measuring a point against itself", func() {
			Convey("Then the distance is exactly zero", func() {
				So(geo.Distance(disneyland, disneyland), ShouldEqual, 0)
				So(math.IsNaN(geo.Distance(jackson, jackson)), ShouldBeFalse)
			})
		})

		Convey("When measuring a known pair", func() {
			d := geo.Distance(disneyland, jackson)

			Convey("Then it matches the great-circle distance in statute miles", func() {
				So(d, ShouldAlmostEqual, 774.52, 0.01)
			})
		})

		Convey("When measuring one degree of longitude along the equator", func() {
			d := geo.Distance(model.Coordinate{}, model.Coordinate{Longitude: 1})

			Convey("Then it is 60 nautical miles", func() {
				So(d, ShouldAlmostEqual, 60*geo.StatuteMilesPerNauticalMile, 1e-6)
			})
		})

		Convey("When measuring random pairs both ways", func() {
			rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
			symmetric := true
			nonNegative := true
			for i := 0; i < 1000; i++ {
				a := model.Coordinate{Latitude: rng.Float64()*170 - 85, Longitude: rng.Float64()*360 - 180}
				b := model.Coordinate{Latitude: rng.Float64()*170 - 85, Longitude: rng.Float64()*360 - 180}
				ab, ba := geo.Distance(a, b), geo.Distance(b, a)
				if math.Abs(ab-ba) > 1e-9 {
					symmetric = false
				}
				if ab < 0 || geo.Distance(a, a) > 1e-9 {
					nonNegative = false
				}
			}

			Convey("Then distance is symmetric, non-negative and zero on the diagonal", func() {
				So(symmetric, ShouldBeTrue)
				So(nonNegative, ShouldBeTrue)
			})
		})
	})
}
