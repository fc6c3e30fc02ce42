package statemachine

import "fmt"

// Option configures a Definition during construction.
type Option[S, E ~string] func(*Definition[S, E]) error

// New builds a Definition from options.
func New[S, E ~string](opts ...Option[S, E]) (*Definition[S, E], error) {
	d := &Definition[S, E]{
		transitions: make(map[S]map[E][]Transition[S, E]),
		terminal:    make(map[S]struct{}),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	for s := range d.terminal {
		if len(d.transitions[s]) > 0 {
			return nil, fmt.Errorf("%w: terminal state '%s' has outgoing transitions", ErrInvalidTransition, s)
		}
	}

	return d, nil
}

// MustNew is like New but panics on an invalid graph.
func MustNew[S, E ~string](opts ...Option[S, E]) *Definition[S, E] {
	d, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return d
}

// WithTransition adds an edge from -> to on event.
func WithTransition[S, E ~string](from, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(d *Definition[S, E]) error {
		if from == "" || to == "" || event == "" {
			return ErrInvalidTransition
		}
		if _, ok := d.transitions[from]; !ok {
			d.transitions[from] = make(map[E][]Transition[S, E])
		}
		d.transitions[from][event] = append(d.transitions[from][event], Transition[S, E]{
			From:   from,
			To:     to,
			Event:  event,
			Guards: guards,
		})
		return nil
	}
}

// WithTransitions adds the same edge from each of froms.
func WithTransitions[S, E ~string](froms []S, to S, event E, guards ...Guard[S, E]) Option[S, E] {
	return func(d *Definition[S, E]) error {
		if len(froms) == 0 {
			return ErrInvalidTransition
		}
		for _, from := range froms {
			if err := WithTransition(from, to, event, guards...)(d); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithTerminal marks states that accept no further events.
func WithTerminal[S, E ~string](states ...S) Option[S, E] {
	return func(d *Definition[S, E]) error {
		for _, s := range states {
			d.terminal[s] = struct{}{}
		}
		return nil
	}
}
