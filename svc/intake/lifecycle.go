package intake

import "github.com/dmitrymomot/intakebilling/pkg/statemachine"

// Trigger is an event that moves an intake along its lifecycle.
type Trigger string

const (
	TriggerDepositCompleted  Trigger = "deposit_completed"
	TriggerBuildStarted      Trigger = "build_started"
	TriggerPaymentSucceeded  Trigger = "payment_succeeded"
	TriggerPaymentFailed     Trigger = "payment_failed"
	TriggerSubscriptionEnded Trigger = "subscription_ended"
)

// Lifecycle is the directed status graph of an intake. Status only moves
// forward and cancelled is terminal. The active self-loop on payment
// succeeded refreshes the billing period without a status change.
var Lifecycle = statemachine.MustNew(
	statemachine.WithTransition(StatusPending, StatusConfirmed, TriggerDepositCompleted),
	statemachine.WithTransition(StatusConfirmed, StatusBuilding, TriggerBuildStarted),
	statemachine.WithTransitions(
		[]Status{StatusConfirmed, StatusBuilding, StatusPastDue, StatusActive},
		StatusActive, TriggerPaymentSucceeded,
	),
	statemachine.WithTransitions(
		[]Status{StatusConfirmed, StatusBuilding, StatusActive},
		StatusPastDue, TriggerPaymentFailed,
	),
	statemachine.WithTransitions(
		[]Status{StatusPending, StatusConfirmed, StatusBuilding, StatusActive, StatusPastDue},
		StatusCancelled, TriggerSubscriptionEnded,
	),
	statemachine.WithTerminal[Status, Trigger](StatusCancelled),
)
