package matchmaking

import "errors"

// Sentinel errors.
var (
	ErrInvalidCapacity = errors.New("group capacity must be positive")
	ErrDuplicateUser   = errors.New("participant listed twice")
)
