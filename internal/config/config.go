// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - Validate is the single place that rejects unusable values.
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log lines.
	LogFormat string `koanf:"log_format"`

	// Addr is the ops HTTP listen address serving /healthz, /stats and /metrics.
	Addr string `koanf:"addr"`

	// WorkerCount bounds the pool shared by location fetches and oracle queries.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds tasks waiting for a free worker.
	QueueSize int `koanf:"queue_size"`

	// TrackingInterval is the sleep between two tracker cycles.
	TrackingInterval time.Duration `koanf:"tracking_interval"`

	// ProximityBufferMiles is the reward radius around an attraction.
	ProximityBufferMiles float64 `koanf:"proximity_buffer_miles"`

	// AttractionRangeMiles is the fixed radius of attraction range checks.
	AttractionRangeMiles float64 `koanf:"attraction_range_miles"`

	// NearbyLimit caps how many attractions a nearby query returns.
	NearbyLimit int `koanf:"nearby_limit"`

	// InternalUserCount seeds the roster with generated users; 0 disables seeding.
	InternalUserCount int `koanf:"internal_user_count"`

	// Simulated collaborator latency bounds.
	LocationLatencyMinMS int `koanf:"location_latency_min_ms"`
	LocationLatencyMaxMS int `koanf:"location_latency_max_ms"`
	OracleLatencyMinMS   int `koanf:"oracle_latency_min_ms"`
	OracleLatencyMaxMS   int `koanf:"oracle_latency_max_ms"`

	// Simulated collaborator failure rates in [0, 1]; 0 never fails.
	LocationFailureRate float64 `koanf:"location_failure_rate"`
	OracleFailureRate   float64 `koanf:"oracle_failure_rate"`

	// ShutdownTimeout bounds graceful shutdown of the pool and HTTP server.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Metrics naming. MetricsEnabled=false keeps /metrics but stops recording.
	MetricsNamespace string    `koanf:"metrics_namespace"`
	MetricsSubsystem string    `koanf:"metrics_subsystem"`
	MetricsEnabled   bool      `koanf:"metrics_enabled"`
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		WorkerCount:          100,
		QueueSize:            10_000,
		TrackingInterval:     5 * time.Minute,
		ProximityBufferMiles: 10,
		AttractionRangeMiles: 200,
		NearbyLimit:          5,
		InternalUserCount:    100,
		LocationLatencyMinMS: 20,
		LocationLatencyMaxMS: 60,
		OracleLatencyMinMS:   5,
		OracleLatencyMaxMS:   20,
		ShutdownTimeout:      30 * time.Second,
		MetricsNamespace:     "tourguide",
		MetricsSubsystem:     "tracker",
		MetricsEnabled:       true,
	}
}

// Validate reports the first unusable value.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TrackingInterval <= 0:
		return fmt.Errorf("%w: tracking_interval must be positive", ErrInvalidConfig)
	case c.ProximityBufferMiles < 0 || math.IsNaN(c.ProximityBufferMiles):
		return fmt.Errorf("%w: proximity_buffer_miles must not be negative", ErrInvalidConfig)
	case c.AttractionRangeMiles < 0 || math.IsNaN(c.AttractionRangeMiles):
		return fmt.Errorf("%w: attraction_range_miles must not be negative", ErrInvalidConfig)
	case c.InternalUserCount < 0:
		return fmt.Errorf("%w: internal_user_count must not be negative", ErrInvalidConfig)
	case c.LocationLatencyMinMS < 0 || c.LocationLatencyMaxMS < c.LocationLatencyMinMS:
		return fmt.Errorf("%w: location latency range is inverted", ErrInvalidConfig)
	case c.OracleLatencyMinMS < 0 || c.OracleLatencyMaxMS < c.OracleLatencyMinMS:
		return fmt.Errorf("%w: oracle latency range is inverted", ErrInvalidConfig)
	case !isRate(c.LocationFailureRate):
		return fmt.Errorf("%w: location_failure_rate must be within [0, 1]", ErrInvalidConfig)
	case !isRate(c.OracleFailureRate):
		return fmt.Errorf("%w: oracle_failure_rate must be within [0, 1]", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsBucketsMS); i++ {
		if c.MetricsBucketsMS[i] <= c.MetricsBucketsMS[i-1] {
			return fmt.Errorf("%w: metrics_buckets_ms must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}

func isRate(v float64) bool {
	return v >= 0 && v <= 1
}
