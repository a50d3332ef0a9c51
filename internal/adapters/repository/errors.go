package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidPairSet = errors.New("pair belongs to another event")
)
