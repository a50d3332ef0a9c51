package fsm

import "errors"

// Sentinel errors returned while building a definition.
var (
	ErrEmptyName      = errors.New("state name is empty")
	ErrDuplicateState = errors.New("state already defined")
	ErrUnknownState   = errors.New("unknown state")
	ErrDuplicateInput = errors.New("input already defined for state")
)
