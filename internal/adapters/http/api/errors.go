package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrNotReady = errors.New("service not ready")
	ErrServe    = errors.New("ops server failed")
)
