// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Coordinate is a position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointOfInterest is a fixed attraction that can yield a reward.
type PointOfInterest struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	Coordinate Coordinate `json:"coordinate"`
}

// VisitRecord is one captured position of an entity.
type VisitRecord struct {
	EntityID   uuid.UUID  `json:"entity_id"`
	Coordinate Coordinate `json:"coordinate"`
	Timestamp  time.Time  `json:"timestamp"`
}

// RewardRecord ties a visit to the attraction it earned points for.
type RewardRecord struct {
	Visit      VisitRecord     `json:"visit"`
	Attraction PointOfInterest `json:"attraction"`
	Points     int             `json:"points"`
}

// NearbyAttraction is an attraction ranked by distance from a position.
type NearbyAttraction struct {
	Attraction    PointOfInterest `json:"attraction"`
	From          Coordinate      `json:"from"`
	DistanceMiles float64         `json:"distance_miles"`
	Points        int             `json:"points"`
}
