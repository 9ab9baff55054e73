// Package gps simulates the location service: a fixed attraction catalog and
// a provider that reports a random position after a short delay.
package gps

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/tourguide/internal/domain/model"
)

// attractionNamespace derives stable attraction IDs from their names.
var attractionNamespace = uuid.MustParse("7b0f3d4e-5c1a-4f6e-9a52-3d8c2b1e6f90") //nolint:gochecknoglobals // fixed namespace

type attraction struct {
	name, city, state string
	lat, lon          float64
}

var builtinAttractions = []attraction{ //nolint:gochecknoglobals // read-only catalog data
	{"Disneyland", "Anaheim", "CA", 33.817595, -117.922008},
	{"Jackson Hole", "Jackson Hole", "WY", 43.582767, -110.821999},
	{"Mojave National Preserve", "Kelso", "CA", 35.141689, -115.510399},
	{"Joshua Tree National Park", "Joshua Tree National Park", "CA", 33.881866, -115.90065},
	{"Buffalo National River", "St Joe", "AR", 35.985512, -92.757652},
	{"Hot Springs National Park", "Hot Springs", "AR", 34.52153, -93.042267},
	{"Kartchner Caverns State Park", "Benson", "AZ", 31.837551, -110.347382},
	{"Legend Valley", "Thornville", "OH", 39.937778, -82.40667},
	{"Flowers Bakery of London", "Flowers Bakery of London", "KY", 37.131527, -84.07486},
	{"McKinley Tower", "Anchorage", "AK", 61.218887, -149.877502},
	{"Flatiron Building", "New York City", "NY", 40.741112, -73.989723},
	{"Fallingwater", "Mill Run", "PA", 39.906113, -79.468056},
	{"Union Station", "Washington D.C.", "CA", 38.897095, -77.006332},
	{"Roger Dean Stadium", "Jupiter", "FL", 26.890959, -80.116577},
	{"Texas Memorial Stadium", "Austin", "TX", 30.283682, -97.732536},
	{"Bryant-Denny Stadium", "Tuscaloosa", "AL", 33.208973, -87.550438},
	{"Tiger Stadium", "Baton Rouge", "LA", 30.412035, -91.183815},
	{"Neyland Stadium", "Knoxville", "TN", 35.955013, -83.925011},
	{"Kyle Field", "College Station", "TX", 30.61025, -96.339844},
	{"San Diego Zoo", "San Diego", "CA", 32.735317, -117.149048},
	{"Zoo Tampa at Lowry Park", "Tampa", "FL", 28.012804, -82.469269},
	{"Franklin Park Zoo", "Boston", "MA", 42.302601, -71.086731},
	{"El Paso Zoo", "El Paso", "TX", 31.769125, -106.44487},
	{"Kansas City Zoo", "Kansas City", "MO", 39.007504, -94.529625},
	{"Bronx Zoo", "Bronx", "NY", 40.852905, -73.872971},
	{"Cinderella Castle", "Orlando", "FL", 28.419411, -81.5812},
}

// Catalog serves a fixed list of attractions.
type Catalog struct {
	attractions []model.PointOfInterest
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	pois := make([]model.PointOfInterest, 0, len(builtinAttractions))
	for _, a := range builtinAttractions {
		pois = append(pois, model.PointOfInterest{
			ID:         uuid.NewSHA1(attractionNamespace, []byte(a.name)),
			Name:       a.name,
			City:       a.city,
			State:      a.state,
			Coordinate: model.Coordinate{Latitude: a.lat, Longitude: a.lon},
		})
	}
	return &Catalog{attractions: pois}
}

// NewCatalogFrom serves the given attractions instead of the built-in ones.
func NewCatalogFrom(pois []model.PointOfInterest) *Catalog {
	out := make([]model.PointOfInterest, len(pois))
	copy(out, pois)
	return &Catalog{attractions: out}
}

// Attractions returns a copy of the catalog.
func (c *Catalog) Attractions(_ context.Context) ([]model.PointOfInterest, error) {
	out := make([]model.PointOfInterest, len(c.attractions))
	copy(out, c.attractions)
	return out, nil
}

// Len returns the number of attractions.
func (c *Catalog) Len() int { return len(c.attractions) }
