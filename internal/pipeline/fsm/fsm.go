// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small transition-table state machine.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrDuplicateTransition  = errors.New("duplicate transition")
	ErrConcurrentTransition = errors.New("concurrent transition")
)

// Transition describes a single edge in the FSM.
// Guard may reject the transition; Action performs side-effects.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Guard  func(ctx context.Context, from S, event E) error
	Action func(ctx context.Context, from S, to S, event E) error
}

// FromAny expands one event edge over several source states.
func FromAny[S ~string, E ~string](froms []S, event E, to S) []Transition[S, E] {
	out := make([]Transition[S, E], 0, len(froms))
	for _, from := range froms {
		out = append(out, Transition[S, E]{From: from, Event: event, To: to})
	}
	return out
}

// Observer is told about every committed transition, outside the lock.
type Observer[S ~string, E ~string] func(from, to S, event E)

// Option configures a Machine.
type Option[S ~string, E ~string] func(*Machine[S, E])

// WithObserver registers an observer for committed transitions.
func WithObserver[S ~string, E ~string](o Observer[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) { m.observers = append(m.observers, o) }
}

// Machine is a small, test-friendly FSM runner.
// Unknown transitions are errors.
type Machine[S ~string, E ~string] struct {
	mu        sync.Mutex
	state     S
	index     map[string]Transition[S, E]
	observers []Observer[S, E]
}

func New[S ~string, E ~string](initial S, transitions []Transition[S, E], opts ...Option[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("%w: %s -> %s", ErrDuplicateTransition, t.From, t.Event)
		}
		idx[k] = t
	}
	m := &Machine[S, E]{state: initial, index: idx}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Can reports whether event is defined for the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[key(m.state, event)]
	return ok
}

// Reset forces the machine back to s without running any transition or observer.
func (m *Machine[S, E]) Reset(s S) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire attempts to apply an event atomically. Guard and Action run
// without the lock held; the commit fails if the state moved meanwhile.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.mu.Lock()
	from := m.state
	t, ok := m.index[key(from, event)]
	m.mu.Unlock()
	if !ok {
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}

	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, t.To, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	if m.state != from {
		cur := m.state
		m.mu.Unlock()
		return cur, fmt.Errorf("%w: from=%s cur=%s event=%s", ErrConcurrentTransition, from, cur, event)
	}
	m.state = t.To
	observers := m.observers
	m.mu.Unlock()

	for _, o := range observers {
		o(from, t.To, event)
	}
	return t.To, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
