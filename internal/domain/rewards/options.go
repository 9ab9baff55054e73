package rewards

import (
	"math"

	"github.com/okian/tourguide/pkg/logger"
)

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithDefaultProximityBuffer sets the radius used at start and after a reset.
// Negative or NaN values are ignored.
func WithDefaultProximityBuffer(miles float64) Option {
	return func(ev *Evaluator) {
		if !math.IsNaN(miles) && miles >= 0 {
			ev.defaultBuffer = miles
		}
	}
}

// WithAttractionRange sets the radius used by WithinRange.
func WithAttractionRange(miles float64) Option {
	return func(ev *Evaluator) {
		if !math.IsNaN(miles) && miles >= 0 {
			ev.attractionRange = miles
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(ev *Evaluator) {
		if l != nil {
			ev.logger = l
		}
	}
}
