package service

import (
	"time"

	"github.com/okian/tourguide/internal/adapters/repository"
	"github.com/okian/tourguide/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued tracking tasks.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTrackingInterval sets the pause between tracker cycles.
func WithTrackingInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithProximityBuffer sets the default reward radius in miles.
func WithProximityBuffer(miles float64) Option {
	return func(s *Service) {
		s.proximityBuffer = miles
	}
}

// WithAttractionRange sets the fixed attraction range in miles.
func WithAttractionRange(miles float64) Option {
	return func(s *Service) {
		s.attractionRange = miles
	}
}

// WithNearbyLimit sets how many attractions NearbyAttractions returns by default.
func WithNearbyLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.nearbyLimit = n
		}
	}
}

// WithRoster replaces the in-memory roster.
func WithRoster(r repository.Roster) Option {
	return func(s *Service) {
		if r != nil {
			s.roster = r
		}
	}
}

// WithTracking controls whether Start launches the periodic tracker.
func WithTracking(enabled bool) Option {
	return func(s *Service) {
		s.tracking = enabled
	}
}

// WithTrackerOptions passes options through to the periodic tracker.
func WithTrackerOptions(opts ...TrackerOption) Option {
	return func(s *Service) {
		s.trackerOpts = append(s.trackerOpts, opts...)
	}
}

// WithShutdownTimeout bounds each shutdown step of Stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
