// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"time"
)

// EventState is the lifecycle state of a dating event.
type EventState string

const (
	StateNotStarted               EventState = "NOT_STARTED"
	StateRegistrationConfirmation EventState = "REGISTRATION_CONFIRMATION"
	StateReady                    EventState = "READY"
	StateRunning                  EventState = "RUNNING"
	StateFinished                 EventState = "FINISHED"
	StateSkipped                  EventState = "SKIPPED"
)

// ErrInvalidStateTransition is returned when an event state write is not allowed.
var ErrInvalidStateTransition = errors.New("invalid event state transition")

// validTransitions lists the states reachable from each state.
// REGISTRATION_CONFIRMATION may be written again when its worker is resumed.
var validTransitions = map[EventState][]EventState{
	StateNotStarted:               {StateRegistrationConfirmation, StateSkipped},
	StateRegistrationConfirmation: {StateRegistrationConfirmation, StateReady, StateSkipped},
	StateReady:                    {StateRunning, StateSkipped},
	StateRunning:                  {StateFinished, StateSkipped},
	StateFinished:                 {},
	StateSkipped:                  {},
}

// IsTerminal reports whether no further transition is possible.
func (s EventState) IsTerminal() bool {
	return s == StateFinished || s == StateSkipped
}

// IsValid reports whether s is a known state.
func (s EventState) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s EventState) CanTransitionTo(target EventState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Predecessors returns every state that may transition into target.
func Predecessors(target EventState) []EventState {
	var out []EventState
	for _, from := range AllStates() {
		if from.CanTransitionTo(target) {
			out = append(out, from)
		}
	}
	return out
}

// AllStates lists the states in lifecycle order.
func AllStates() []EventState {
	return []EventState{
		StateNotStarted,
		StateRegistrationConfirmation,
		StateReady,
		StateRunning,
		StateFinished,
		StateSkipped,
	}
}

// Event is a scheduled dating event.
type Event struct {
	ID        int64
	StartTime time.Time
	// GroupCapacity is the per-event group size limit; zero means use the configured default.
	GroupCapacity int
	State         EventState
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	// StartsAfter excludes events starting at or before this instant when non-zero.
	StartsAfter time.Time
	// States restricts the result to these states when non-empty.
	States []EventState
}
