package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists intakes. Every mutation is conditional on the state the
// caller read, so concurrent writers cannot overwrite each other's progress.
type Store interface {
	Create(ctx context.Context, in *Intake) error

	// Get returns ErrNotFound if the intake does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Intake, error)

	// GetBySubscriptionID returns ErrNotFound if no intake carries subscriptionID.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Intake, error)

	// SetCustomerID stores customerID unless a customer id is already set and
	// returns the value stored after the call.
	SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error)

	// Activate writes the activation fields and moves the intake to confirmed.
	// Returns ErrConflict if a subscription id is already recorded.
	Activate(ctx context.Context, id uuid.UUID, a Activation) error

	// UpdateStatus moves the intake from one status to another. Returns
	// ErrConflict if the stored status is no longer from. A non-nil periodEnd
	// replaces CurrentPeriodEnd.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, periodEnd *time.Time) error
}

// EventLedger records processed webhook event ids. It closes the window in
// which two concurrent deliveries of the same event both pass the
// record-level duplicate checks.
type EventLedger interface {
	// Claim records eventID and reports whether this call recorded it.
	Claim(ctx context.Context, eventID, eventType string) (bool, error)

	// Release forgets eventID so a later delivery is processed again.
	Release(ctx context.Context, eventID string) error
}

// LegacyStore persists project billing records of the previous data model.
type LegacyStore interface {
	Get(ctx context.Context, projectID string) (*LegacyRecord, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*LegacyRecord, error)

	// UpdateState moves the record from one state to another, returning
	// ErrConflict if the stored state is no longer from. A non-empty
	// subscriptionID is recorded when none is stored yet.
	UpdateState(ctx context.Context, projectID string, from, to LegacyState, subscriptionID string) error
}
