package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/intakebilling/pkg/async"
	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/pkg/logger"
)

// Activator turns a paid deposit into a trialing recurring subscription.
type Activator struct {
	store         Store
	provider      billing.Provider
	trialDays     int
	notifier      Notifier
	notifyTimeout time.Duration
	pending       async.Tracker
	log           *slog.Logger
	now           func() time.Time
}

func NewActivator(store Store, provider billing.Provider, cfg Config, opts ...Option) *Activator {
	if store == nil || provider == nil {
		panic("intake: activator requires store and provider")
	}
	o := newOptions(opts)
	timeout := cfg.NotifyTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Activator{
		store:         store,
		provider:      provider,
		trialDays:     cfg.trialDays(),
		notifier:      o.notifier,
		notifyTimeout: timeout,
		log:           o.log.With(logger.Component("activator")),
		now:           o.now,
	}
}

type activationRequest struct {
	sessionID  string
	customerID string
	priceID    string
	plan       Plan
	currency   string
}

// HandleDepositCompleted guards and performs activation for a completed
// deposit checkout. Duplicate deliveries return nil without side effects.
func (a *Activator) HandleDepositCompleted(ctx context.Context, evt *billing.Event) error {
	log := a.log.With(logger.EventID(evt.ID), logger.SessionID(evt.SessionID))

	if evt.MetadataValue(MetaActivate) != "true" {
		log.InfoContext(ctx, "checkout session is not an activation trigger, skipping")
		return nil
	}
	if evt.PaymentStatus != billing.PaymentStatusPaid {
		log.InfoContext(ctx, "deposit not paid yet, skipping", slog.String("payment_status", evt.PaymentStatus))
		return nil
	}
	if evt.SessionID == "" {
		return fmt.Errorf("%w: deposit event without session id", ErrValidation)
	}

	id, err := uuid.Parse(evt.MetadataValue(MetaIntakeID))
	if err != nil {
		return fmt.Errorf("%w: session %s carries invalid intake id %q", ErrValidation, evt.SessionID, evt.MetadataValue(MetaIntakeID))
	}
	log = log.With(logger.IntakeID(id))

	// Always act on a fresh read.
	in, err := a.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: intake %s referenced by session %s", ErrNotFound, id, evt.SessionID)
		}
		return errors.Join(ErrPersistence, err)
	}

	if in.HasSubscription() {
		log.InfoContext(ctx, "intake already activated, duplicate delivery ignored",
			logger.SubscriptionID(*in.ExternalSubscriptionID))
		return nil
	}
	if in.DepositSessionID != nil {
		if *in.DepositSessionID == evt.SessionID {
			log.InfoContext(ctx, "deposit session already recorded, duplicate delivery ignored")
			return nil
		}
		return fmt.Errorf("%w: intake %s recorded deposit session %s, got %s",
			ErrConflict, id, *in.DepositSessionID, evt.SessionID)
	}
	if !Lifecycle.Can(ctx, in.Status, TriggerDepositCompleted, in) {
		log.WarnContext(ctx, "deposit completed for intake that cannot be activated",
			slog.String("status", string(in.Status)))
		return nil
	}

	req := activationRequest{
		sessionID:  evt.SessionID,
		customerID: evt.CustomerID,
		priceID:    evt.MetadataValue(MetaRecurringPriceID),
		plan:       Plan(evt.MetadataValue(MetaPlan)),
		currency:   evt.MetadataValue(MetaCurrency),
	}
	if req.customerID == "" && in.HasCustomer() {
		req.customerID = *in.ExternalCustomerID
	}
	if req.priceID == "" {
		return fmt.Errorf("%w: session %s has no recurring price", ErrValidation, evt.SessionID)
	}
	if req.customerID == "" {
		return fmt.Errorf("%w: no customer for intake %s", ErrValidation, id)
	}
	if !req.plan.Valid() {
		req.plan = in.Plan
	}
	if req.currency == "" {
		req.currency = in.Currency
	}

	return a.activate(ctx, in, req)
}

// activate creates the subscription and records it on the intake. The
// processor call happens first; a failure leaves the intake untouched so a
// redelivered event can re-enter the guard.
func (a *Activator) activate(ctx context.Context, in *Intake, req activationRequest) error {
	log := a.log.With(logger.IntakeID(in.ID), logger.SessionID(req.sessionID))

	sub, err := a.provider.CreateSubscription(ctx, billing.SubscriptionRequest{
		CustomerID: req.customerID,
		PriceID:    req.priceID,
		TrialDays:  a.trialDays,
		Metadata: map[string]string{
			MetaIntakeID: in.ID.String(),
			MetaPlan:     string(req.plan),
			MetaCurrency: req.currency,
		},
		IdempotencyKey: SubscriptionIdempotencyKey(in.ID),
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to create subscription", logger.Error(err))
		return errors.Join(ErrTransientExternal, err)
	}

	now := a.now().UTC()
	trialStart := sub.TrialStart
	if trialStart.IsZero() {
		trialStart = now
	}
	trialEnd := sub.TrialEnd
	if trialEnd.IsZero() {
		trialEnd = trialStart.AddDate(0, 0, a.trialDays)
	}

	act := Activation{
		Plan:             req.plan,
		Currency:         req.currency,
		SubscriptionID:   sub.ID,
		CustomerID:       req.customerID,
		DepositSessionID: req.sessionID,
		TrialStart:       trialStart,
		TrialEnd:         trialEnd,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		ActivatedAt:      now,
	}

	if err := a.store.Activate(ctx, in.ID, act); err != nil {
		if errors.Is(err, ErrConflict) {
			log.InfoContext(ctx, "intake activated concurrently, keeping stored subscription",
				logger.SubscriptionID(sub.ID), logger.Error(err))
			return nil
		}
		log.ErrorContext(ctx, "subscription created but intake not updated",
			logger.SubscriptionID(sub.ID),
			logger.CustomerID(req.customerID),
			logger.Error(err),
		)
		return errors.Join(ErrPersistence, err)
	}

	log.InfoContext(ctx, "intake activated",
		logger.SubscriptionID(sub.ID),
		logger.Transition(string(in.Status), string(StatusConfirmed)),
		slog.Time("trial_end", trialEnd),
	)

	a.notify(ctx, in.ID)
	return nil
}

// notify sends the activation notice in the background. The result is
// logged, never awaited by the caller.
func (a *Activator) notify(ctx context.Context, id uuid.UUID) {
	if a.notifier == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	async.Go(&a.pending, detached, id, func(ctx context.Context, id uuid.UUID) (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, a.notifyTimeout)
		defer cancel()

		in, err := a.store.Get(ctx, id)
		if err == nil {
			err = a.notifier.NotifyActivated(ctx, *in)
		}
		if err != nil {
			a.log.WarnContext(ctx, "activation notification failed", logger.IntakeID(id), logger.Error(err))
		}
		return struct{}{}, err
	})
}

// Wait blocks until background notifications finish or ctx is done.
func (a *Activator) Wait(ctx context.Context) error {
	return a.pending.Wait(ctx)
}
