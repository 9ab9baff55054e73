package worker

import "errors"

// ErrTaskPanicked resolves a Future whose function panicked.
var ErrTaskPanicked = errors.New("task panicked")
