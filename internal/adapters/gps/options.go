package gps

import (
	"math/rand"
	"time"
)

// Option applies a configuration option to the Provider.
type Option func(*Provider)

// WithLatencyRange sets the simulated latency range. Zero disables the delay.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(p *Provider) {
		if minLatency >= 0 && maxLatency >= minLatency {
			p.minLatency = minLatency
			p.maxLatency = maxLatency
		}
	}
}

// WithSeed makes the generated positions reproducible from seed.
func WithSeed(seed int64) Option {
	return func(p *Provider) {
		p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // simulated data
	}
}

// WithClock sets the source of visit timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithFailureRate makes a share of Locate calls fail. rate is clamped to [0, 1].
func WithFailureRate(rate float64) Option {
	return func(p *Provider) {
		p.failRate = clampRate(rate)
	}
}

func clampRate(rate float64) float64 {
	switch {
	case rate > 1:
		return 1
	case rate > 0:
		return rate
	default:
		return 0
	}
}
