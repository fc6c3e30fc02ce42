package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Plan is an offered subscription tier.
type Plan string

const (
	PlanStarter Plan = "starter"
	PlanGrowth  Plan = "growth"
	PlanScale   Plan = "scale"
)

// Plans lists the offered tiers in ascending order.
var Plans = []Plan{PlanStarter, PlanGrowth, PlanScale}

func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanGrowth, PlanScale:
		return true
	}
	return false
}

// ParsePlan accepts plan names case-insensitively.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown plan %q", ErrValidation, s)
	}
	return p, nil
}

// Status is the lifecycle state of an intake.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusBuilding  Status = "building"
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

// Intake tracks one client's project submission through its billing lifecycle.
// Records are never deleted.
type Intake struct {
	ID       uuid.UUID
	Plan     Plan
	Currency string
	Email    string
	Name     string

	ExternalCustomerID     *string
	ExternalSubscriptionID *string
	DepositSessionID       *string

	DepositPaid      bool
	TrialStart       *time.Time
	TrialEnd         *time.Time
	CurrentPeriodEnd *time.Time

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (in *Intake) HasCustomer() bool {
	return in.ExternalCustomerID != nil && *in.ExternalCustomerID != ""
}

func (in *Intake) HasSubscription() bool {
	return in.ExternalSubscriptionID != nil && *in.ExternalSubscriptionID != ""
}

// Activation is the set of fields written atomically when the recurring
// subscription has been created.
type Activation struct {
	Plan             Plan
	Currency         string
	SubscriptionID   string
	CustomerID       string
	DepositSessionID string
	TrialStart       time.Time
	TrialEnd         time.Time
	CurrentPeriodEnd time.Time
	ActivatedAt      time.Time
}

// Idempotency keys sent to the processor. Stable per intake, so a repeated
// creation request returns the resource created by the first one.
func CustomerIdempotencyKey(id uuid.UUID) string {
	return "customer:" + id.String()
}

func SubscriptionIdempotencyKey(id uuid.UUID) string {
	return "subscription:" + id.String()
}

// Metadata keys carried on processor objects.
const (
	MetaIntakeID         = "intakeId"
	MetaPlan             = "plan"
	MetaCurrency         = "currency"
	MetaRecurringPriceID = "recurringPriceId"
	MetaActivate         = "activateSubscription"
	MetaProjectID        = "projectId"
)

func clone(in *Intake) *Intake {
	if in == nil {
		return nil
	}
	out := *in
	out.ExternalCustomerID = cloneString(in.ExternalCustomerID)
	out.ExternalSubscriptionID = cloneString(in.ExternalSubscriptionID)
	out.DepositSessionID = cloneString(in.DepositSessionID)
	out.TrialStart = cloneTime(in.TrialStart)
	out.TrialEnd = cloneTime(in.TrialEnd)
	out.CurrentPeriodEnd = cloneTime(in.CurrentPeriodEnd)
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func ptr[T any](v T) *T {
	return &v
}
