package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/pkg/logger"
	"github.com/dmitrymomot/intakebilling/pkg/statemachine"
)

// maxProjectAttempts bounds the re-read loop when a concurrent writer
// changes the status between read and conditional write.
const maxProjectAttempts = 3

// Projector advances intake status on billing lifecycle events keyed by
// subscription id.
type Projector struct {
	store Store
	log   *slog.Logger
}

func NewProjector(store Store, opts ...Option) *Projector {
	if store == nil {
		panic("intake: projector requires store")
	}
	o := newOptions(opts)
	return &Projector{
		store: store,
		log:   o.log.With(logger.Component("projector")),
	}
}

func (p *Projector) HandlePaymentSucceeded(ctx context.Context, evt *billing.Event) error {
	return p.project(ctx, evt, TriggerPaymentSucceeded)
}

func (p *Projector) HandlePaymentFailed(ctx context.Context, evt *billing.Event) error {
	return p.project(ctx, evt, TriggerPaymentFailed)
}

func (p *Projector) HandleSubscriptionEnded(ctx context.Context, evt *billing.Event) error {
	return p.project(ctx, evt, TriggerSubscriptionEnded)
}

// StartBuild marks work on a confirmed intake as started.
func (p *Projector) StartBuild(ctx context.Context, id uuid.UUID) (*Intake, error) {
	for range maxProjectAttempts {
		in, err := p.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, err
			}
			return nil, errors.Join(ErrPersistence, err)
		}

		next, err := Lifecycle.Next(ctx, in.Status, TriggerBuildStarted, in)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot start build for %s intake", ErrConflict, in.Status)
		}

		err = p.store.UpdateStatus(ctx, id, in.Status, next, nil)
		switch {
		case err == nil:
			p.log.InfoContext(ctx, "build started",
				logger.IntakeID(id), logger.Transition(string(in.Status), string(next)))
			return p.store.Get(ctx, id)
		case errors.Is(err, ErrConflict):
			continue
		default:
			return nil, errors.Join(ErrPersistence, err)
		}
	}
	return nil, fmt.Errorf("%w: intake %s kept changing", ErrConflict, id)
}

func (p *Projector) project(ctx context.Context, evt *billing.Event, trigger Trigger) error {
	log := p.log.With(
		logger.EventID(evt.ID),
		logger.SubscriptionID(evt.SubscriptionID),
		logger.EventType(string(trigger)),
	)

	if evt.SubscriptionID == "" {
		log.WarnContext(ctx, "billing event without subscription id ignored")
		return nil
	}

	var periodEnd *time.Time
	if trigger == TriggerPaymentSucceeded && !evt.PeriodEnd.IsZero() {
		periodEnd = ptr(evt.PeriodEnd.UTC())
	}

	for range maxProjectAttempts {
		in, err := p.store.GetBySubscriptionID(ctx, evt.SubscriptionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				log.WarnContext(ctx, "no intake for subscription, event ignored")
				return nil
			}
			return errors.Join(ErrPersistence, err)
		}
		log := log.With(logger.IntakeID(in.ID))

		next, err := Lifecycle.Next(ctx, in.Status, trigger, in)
		switch {
		case errors.Is(err, statemachine.ErrTerminalState):
			log.InfoContext(ctx, "intake is cancelled, event ignored")
			return nil
		case err != nil:
			log.DebugContext(ctx, "event not applicable in current status",
				slog.String("status", string(in.Status)), logger.Error(err))
			return nil
		}

		err = p.store.UpdateStatus(ctx, in.ID, in.Status, next, periodEnd)
		switch {
		case err == nil:
			log.InfoContext(ctx, "intake status projected", logger.Transition(string(in.Status), string(next)))
			return nil
		case errors.Is(err, ErrConflict):
			log.DebugContext(ctx, "status changed concurrently, re-reading", logger.Error(err))
			continue
		default:
			return errors.Join(ErrPersistence, err)
		}
	}

	return fmt.Errorf("%w: subscription %s kept changing", ErrConflict, evt.SubscriptionID)
}
