// Package statemachine provides an immutable, type-safe transition graph for
// records whose state is persisted outside the process.
//
// A Definition holds the allowed transitions map[from][event][]Transition and
// answers one question: given the state a record is in right now and an
// incoming event, which state should it move to? It does not own the current
// state. Callers read the record, ask the Definition for the next state and
// write the result back conditionally (compare-and-set on the state they
// read). This keeps the graph safe to share between goroutines without
// locking.
//
// States and events are any string-based types:
//
//	type Status string
//	type Trigger string
//
//	def := statemachine.MustNew[Status, Trigger](
//	    statemachine.WithTransition[Status, Trigger]("draft", "in_review", "submit"),
//	    statemachine.WithTransitions[Status, Trigger]([]Status{"draft", "in_review"}, "archived", "archive"),
//	    statemachine.WithTerminal[Status, Trigger]("archived"),
//	)
//
//	next, err := def.Next(ctx, current, "submit", nil)
//
// # Guards
//
// Guards veto a transition based on runtime data. When several transitions
// share a from/event pair, the first one whose guards all pass wins.
//
// # Errors
//
// Next returns ErrTerminalState for events delivered to a terminal state, a
// *NoTransitionError when the graph has no edge for the pair and a
// *RejectedError when every candidate edge was vetoed by guards. Use
// IsNoTransition and IsRejected to tell them apart.
package statemachine
