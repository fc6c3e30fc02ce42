package statemachine

import (
	"context"
	"slices"
)

// Guard evaluates whether a transition may proceed.
type Guard[S, E ~string] func(ctx context.Context, from S, event E, data any) bool

// Transition is one edge of the graph.
type Transition[S, E ~string] struct {
	From   S
	To     S
	Event  E
	Guards []Guard[S, E] // all must pass
}

// Definition is an immutable transition graph. It is safe for concurrent use.
type Definition[S, E ~string] struct {
	transitions map[S]map[E][]Transition[S, E]
	terminal    map[S]struct{}
}

// Next returns the state a record in from should move to on event.
func (d *Definition[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	if d.IsTerminal(from) {
		return from, ErrTerminalState
	}

	candidates := d.transitions[from][event]
	if len(candidates) == 0 {
		return from, &NoTransitionError{State: string(from), Event: string(event)}
	}

	for _, t := range candidates {
		if guardsPass(ctx, t, data) {
			return t.To, nil
		}
	}

	return from, &RejectedError{State: string(from), Event: string(event)}
}

// Can reports whether event would move a record out of from.
func (d *Definition[S, E]) Can(ctx context.Context, from S, event E, data any) bool {
	_, err := d.Next(ctx, from, event, data)
	return err == nil
}

// IsTerminal reports whether no transition out of s is ever accepted.
func (d *Definition[S, E]) IsTerminal(s S) bool {
	_, ok := d.terminal[s]
	return ok
}

// Events lists the events with at least one edge out of from, sorted.
func (d *Definition[S, E]) Events(from S) []E {
	if d.IsTerminal(from) {
		return nil
	}
	events := make([]E, 0, len(d.transitions[from]))
	for e := range d.transitions[from] {
		events = append(events, e)
	}
	slices.Sort(events)
	return events
}

// Sources lists the states from which event has an edge, sorted.
func (d *Definition[S, E]) Sources(event E) []S {
	var states []S
	for from, byEvent := range d.transitions {
		if _, ok := byEvent[event]; ok && !d.IsTerminal(from) {
			states = append(states, from)
		}
	}
	slices.Sort(states)
	return states
}

func guardsPass[S, E ~string](ctx context.Context, t Transition[S, E], data any) bool {
	for _, g := range t.Guards {
		if g != nil && !g(ctx, t.From, t.Event, data) {
			return false
		}
	}
	return true
}
