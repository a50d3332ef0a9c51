// Package fsm is a small finite state machine where every state owns an
// asynchronous action and a table of input -> next state transitions.
//
// A Builder produces an immutable Definition that can be shared; each
// Definition.Start call returns an independent Machine.
package fsm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/datemaker/pkg/logger"
)

// Action runs when its state is entered.
type Action[P any] func(ctx context.Context, p P) error

type state[P any] struct {
	name        string
	action      Action[P]
	transitions map[string]string
}

// Builder collects states and transitions. The first error sticks and is
// returned by Build.
type Builder[P any] struct {
	states map[string]*state[P]
	err    error
}

// NewBuilder returns an empty builder.
func NewBuilder[P any]() *Builder[P] {
	return &Builder[P]{states: make(map[string]*state[P])}
}

// State adds a state. A nil action is a no-op.
func (b *Builder[P]) State(name string, action Action[P]) *Builder[P] {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = ErrEmptyName
		return b
	}
	if _, ok := b.states[name]; ok {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateState, name)
		return b
	}
	if action == nil {
		action = func(context.Context, P) error { return nil }
	}
	b.states[name] = &state[P]{name: name, action: action, transitions: make(map[string]string)}
	return b
}

// Transition maps input in state from to state to. Both states must exist.
func (b *Builder[P]) Transition(from, input, to string) *Builder[P] {
	if b.err != nil {
		return b
	}
	src, ok := b.states[from]
	if !ok {
		b.err = fmt.Errorf("%w: %s", ErrUnknownState, from)
		return b
	}
	if _, ok := b.states[to]; !ok {
		b.err = fmt.Errorf("%w: %s", ErrUnknownState, to)
		return b
	}
	if _, ok := src.transitions[input]; ok {
		b.err = fmt.Errorf("%w: %s/%s", ErrDuplicateInput, from, input)
		return b
	}
	src.transitions[input] = to
	return b
}

// Build freezes the builder into a Definition starting at initial.
func (b *Builder[P]) Build(initial string, opts ...Option) (*Definition[P], error) {
	if b.err != nil {
		return nil, b.err
	}
	if _, ok := b.states[initial]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownState, initial)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("fsm")
	}

	frozen := make(map[string]state[P], len(b.states))
	for name, s := range b.states {
		tr := make(map[string]string, len(s.transitions))
		for in, to := range s.transitions {
			tr[in] = to
		}
		frozen[name] = state[P]{name: name, action: s.action, transitions: tr}
	}
	return &Definition[P]{states: frozen, initial: initial, log: o.log}, nil
}

// Definition is an immutable state graph.
type Definition[P any] struct {
	states  map[string]state[P]
	initial string
	log     logger.Logger
}

// Initial returns the initial state name.
func (d *Definition[P]) Initial() string { return d.initial }

// Inputs lists the inputs accepted in the named state, sorted.
func (d *Definition[P]) Inputs(name string) []string {
	s, ok := d.states[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.transitions))
	for in := range s.transitions {
		out = append(out, in)
	}
	sort.Strings(out)
	return out
}

// Start creates a machine in the initial state and schedules the initial
// action in the background.
func (d *Definition[P]) Start(ctx context.Context, p P) *Machine[P] {
	m := &Machine[P]{
		def:         d,
		current:     d.initial,
		initialDone: make(chan struct{}),
	}
	go func() {
		defer close(m.initialDone)
		m.initialErr = d.states[d.initial].action(ctx, p)
	}()
	return m
}

// Machine is one running instance of a Definition.
type Machine[P any] struct {
	def *Definition[P]

	// step serializes transitions.
	step sync.Mutex

	mu      sync.RWMutex
	current string

	initialDone chan struct{}
	initialErr  error
}

// Current returns the current state name.
func (m *Machine[P]) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// WaitInitial blocks until the initial action returned and reports its error.
func (m *Machine[P]) WaitInitial(ctx context.Context) error {
	select {
	case <-m.initialDone:
		return m.initialErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transition feeds input to the machine. If the current state defines the
// input, the machine moves and runs the new state's action to completion,
// returning true and the action's error. Otherwise it logs and stays.
func (m *Machine[P]) Transition(ctx context.Context, input string, p P) (bool, error) {
	m.step.Lock()
	defer m.step.Unlock()

	from := m.Current()
	to, ok := m.def.states[from].transitions[input]
	if !ok {
		m.def.log.Warn(ctx, "undefined transition, staying in state",
			logger.String("state", from),
			logger.String("input", input))
		return false, nil
	}

	m.mu.Lock()
	m.current = to
	m.mu.Unlock()

	m.def.log.Debug(ctx, "transition",
		logger.String("from", from),
		logger.String("input", input),
		logger.String("to", to))

	return true, m.def.states[to].action(ctx, p)
}
