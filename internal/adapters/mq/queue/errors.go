package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed  = errors.New("queue closed")
	ErrStopped = errors.New("worker pool stopped")
)
