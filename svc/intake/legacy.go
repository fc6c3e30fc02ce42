package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/pkg/logger"
	"github.com/dmitrymomot/intakebilling/pkg/statemachine"
)

// LegacyState is the billing state of a project record from the previous
// data model.
type LegacyState string

const (
	LegacyAwaitingDeposit LegacyState = "awaiting_deposit"
	LegacyInBuild         LegacyState = "in_build"
	LegacyLive            LegacyState = "live"
	LegacyDelinquent      LegacyState = "delinquent"
	LegacyClosed          LegacyState = "closed"
)

// LegacyRecord is a project billing record keyed by project id.
type LegacyRecord struct {
	ProjectID      string
	SubscriptionID string
	State          LegacyState
	UpdatedAt      time.Time
}

// LegacyLifecycle is independent from Lifecycle; both consume the same
// billing events.
var LegacyLifecycle = statemachine.MustNew(
	statemachine.WithTransition(LegacyAwaitingDeposit, LegacyInBuild, TriggerDepositCompleted),
	statemachine.WithTransitions(
		[]LegacyState{LegacyInBuild, LegacyLive, LegacyDelinquent},
		LegacyLive, TriggerPaymentSucceeded,
	),
	statemachine.WithTransitions(
		[]LegacyState{LegacyInBuild, LegacyLive},
		LegacyDelinquent, TriggerPaymentFailed,
	),
	statemachine.WithTransitions(
		[]LegacyState{LegacyAwaitingDeposit, LegacyInBuild, LegacyLive, LegacyDelinquent},
		LegacyClosed, TriggerSubscriptionEnded,
	),
	statemachine.WithTerminal[LegacyState, Trigger](LegacyClosed),
)

// IsLegacyEvent reports whether evt belongs to the previous data model:
// its metadata names a project and no intake.
func IsLegacyEvent(evt *billing.Event) bool {
	return evt.MetadataValue(MetaProjectID) != "" && evt.MetadataValue(MetaIntakeID) == ""
}

// LegacyProjector advances project billing records. It never calls the
// payment processor.
type LegacyProjector struct {
	store LegacyStore
	log   *slog.Logger
}

func NewLegacyProjector(store LegacyStore, opts ...Option) *LegacyProjector {
	if store == nil {
		panic("intake: legacy projector requires store")
	}
	o := newOptions(opts)
	return &LegacyProjector{
		store: store,
		log:   o.log.With(logger.Component("legacy_projector")),
	}
}

// Handle applies trigger to the record evt refers to. Unknown records and
// inapplicable events are logged no-ops.
func (p *LegacyProjector) Handle(ctx context.Context, evt *billing.Event, trigger Trigger) error {
	log := p.log.With(
		logger.EventID(evt.ID),
		logger.ProjectID(evt.MetadataValue(MetaProjectID)),
		logger.SubscriptionID(evt.SubscriptionID),
		logger.EventType(string(trigger)),
	)

	if trigger == TriggerDepositCompleted && evt.PaymentStatus != billing.PaymentStatusPaid {
		log.InfoContext(ctx, "deposit not paid yet, skipping")
		return nil
	}

	for range maxProjectAttempts {
		rec, err := p.lookup(ctx, evt)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				log.WarnContext(ctx, "no project billing record for event, ignored")
				return nil
			}
			return errors.Join(ErrPersistence, err)
		}

		next, err := LegacyLifecycle.Next(ctx, rec.State, trigger, rec)
		if err != nil {
			log.DebugContext(ctx, "event not applicable to project billing state",
				slog.String("state", string(rec.State)), logger.Error(err))
			return nil
		}

		err = p.store.UpdateState(ctx, rec.ProjectID, rec.State, next, evt.SubscriptionID)
		switch {
		case err == nil:
			log.InfoContext(ctx, "project billing state projected",
				logger.ProjectID(rec.ProjectID), logger.Transition(string(rec.State), string(next)))
			return nil
		case errors.Is(err, ErrConflict):
			continue
		default:
			return errors.Join(ErrPersistence, err)
		}
	}

	return fmt.Errorf("%w: project billing record kept changing", ErrConflict)
}

func (p *LegacyProjector) lookup(ctx context.Context, evt *billing.Event) (*LegacyRecord, error) {
	if evt.SubscriptionID != "" {
		rec, err := p.store.GetBySubscriptionID(ctx, evt.SubscriptionID)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return rec, err
		}
	}
	if projectID := evt.MetadataValue(MetaProjectID); projectID != "" {
		return p.store.Get(ctx, projectID)
	}
	return nil, ErrNotFound
}
