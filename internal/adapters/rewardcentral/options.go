package rewardcentral

import (
	"math/rand"
	"time"
)

// Option applies a configuration option to the Oracle.
type Option func(*Oracle)

// WithLatencyRange sets the simulated latency range. Zero disables the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(o *Oracle) {
		if minLatency >= 0 && maxLatency >= minLatency {
			o.minLatency = minLatency
			o.maxLatency = maxLatency
		}
	}
}

// WithSeed makes the returned points reproducible from seed.
func WithSeed(seed int64) Option {
	return func(o *Oracle) {
		o.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible testing
	}
}

// WithFailureRate makes a share of Points calls fail with
// model.ErrOracleUnavailable. Values outside [0, 1] are clamped.
func WithFailureRate(rate float64) Option {
	return func(o *Oracle) {
		switch {
		case rate > 1:
			o.failRate = 1
		case rate > 0:
			o.failRate = rate
		default:
			o.failRate = 0
		}
	}
}
