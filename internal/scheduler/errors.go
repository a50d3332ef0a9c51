package scheduler

import "errors"

// Sentinel errors.
var (
	ErrAlreadyStarted  = errors.New("scheduler already started")
	ErrShutdownTimeout = errors.New("workers still running after shutdown timeout")
	ErrWorkerPanic     = errors.New("worker panicked")
)
