package service

import "errors"

// Sentinel kinds for service and tracker lifecycle errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrServiceStopped = errors.New("service stopped")
	ErrTrackerStopped = errors.New("tracker stopped")
	ErrTrackerRunning = errors.New("tracker already running")
)
