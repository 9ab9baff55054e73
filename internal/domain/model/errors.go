package model

import "errors"

// Sentinel kinds shared by the tracking pipeline.
var (
	// ErrProviderUnavailable marks a transient location provider failure.
	ErrProviderUnavailable = errors.New("location provider unavailable")
	// ErrOracleUnavailable marks a transient reward oracle failure.
	ErrOracleUnavailable = errors.New("reward oracle unavailable")
	// ErrInvalidConfiguration marks a rejected runtime setting.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
