package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/pkg/logger"
)

// Outcome describes what happened to an acknowledged webhook event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	// OutcomeFailed is still acknowledged: the processor's redelivery and
	// the idempotency checks are the recovery path.
	OutcomeFailed Outcome = "failed"
)

// Ack is the result of dispatching one webhook delivery.
type Ack struct {
	EventID   string
	EventType billing.EventType
	Outcome   Outcome
}

// Dispatcher verifies inbound webhook deliveries and routes them to exactly
// one handler.
type Dispatcher struct {
	provider  billing.Provider
	ledger    EventLedger
	activator *Activator
	projector *Projector
	legacy    *LegacyProjector
	log       *slog.Logger
}

func NewDispatcher(provider billing.Provider, ledger EventLedger, activator *Activator, projector *Projector, opts ...Option) *Dispatcher {
	if provider == nil || ledger == nil || activator == nil || projector == nil {
		panic("intake: dispatcher requires provider, ledger, activator and projector")
	}
	o := newOptions(opts)
	return &Dispatcher{
		provider:  provider,
		ledger:    ledger,
		activator: activator,
		projector: projector,
		legacy:    o.legacy,
		log:       o.log.With(logger.Component("dispatcher")),
	}
}

// Dispatch verifies and handles one delivery.
//
// It returns ErrAuthentication for a bad signature (nothing is read or
// written), ErrValidation for a verified but unreadable payload and
// ErrPersistence when the event ledger is unavailable. Every error raised by
// a handler is logged here and turned into an acknowledgement.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte, signature string) (Ack, error) {
	evt, err := d.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			d.log.WarnContext(ctx, "webhook signature verification failed, possible tampering",
				slog.Int("payload_bytes", len(payload)),
				logger.Error(err),
			)
			return Ack{}, errors.Join(ErrAuthentication, err)
		}
		d.log.WarnContext(ctx, "webhook payload rejected", logger.Error(err))
		return Ack{}, errors.Join(ErrValidation, err)
	}

	ack := Ack{EventID: evt.ID, EventType: evt.Type}
	log := d.log.With(
		logger.EventID(evt.ID),
		logger.EventType(evt.ProviderType),
	)

	if evt.Type == billing.EventUnhandled {
		log.DebugContext(ctx, "webhook event kind not handled, acknowledged")
		ack.Outcome = OutcomeIgnored
		return ack, nil
	}

	claimed, err := d.ledger.Claim(ctx, evt.ID, evt.ProviderType)
	if err != nil {
		log.ErrorContext(ctx, "event ledger unavailable", logger.Error(err))
		return ack, errors.Join(ErrPersistence, err)
	}
	if !claimed {
		log.InfoContext(ctx, "webhook event already processed, acknowledged")
		ack.Outcome = OutcomeDuplicate
		return ack, nil
	}

	start := time.Now()
	if err := d.route(ctx, evt); err != nil {
		// Forget the event so a redelivery or manual replay re-enters the flow.
		if relErr := d.ledger.Release(context.WithoutCancel(ctx), evt.ID); relErr != nil {
			log.ErrorContext(ctx, "failed to release event from ledger", logger.Error(relErr))
		}
		log.ErrorContext(ctx, "webhook handler failed, acknowledged",
			logger.Error(err),
			logger.Duration(time.Since(start)),
		)
		ack.Outcome = OutcomeFailed
		return ack, nil
	}

	log.InfoContext(ctx, "webhook event processed", logger.Duration(time.Since(start)))
	ack.Outcome = OutcomeProcessed
	return ack, nil
}

func (d *Dispatcher) route(ctx context.Context, evt *billing.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webhook handler panicked: %v", r)
		}
	}()

	if d.legacy != nil && IsLegacyEvent(evt) {
		return d.legacy.Handle(ctx, evt, triggerFor(evt.Type))
	}

	switch evt.Type {
	case billing.EventDepositCompleted:
		return d.activator.HandleDepositCompleted(ctx, evt)
	case billing.EventPaymentSucceeded:
		return d.projector.HandlePaymentSucceeded(ctx, evt)
	case billing.EventPaymentFailed:
		return d.projector.HandlePaymentFailed(ctx, evt)
	case billing.EventSubscriptionEnded:
		return d.projector.HandleSubscriptionEnded(ctx, evt)
	default:
		return nil
	}
}

func triggerFor(t billing.EventType) Trigger {
	switch t {
	case billing.EventDepositCompleted:
		return TriggerDepositCompleted
	case billing.EventPaymentSucceeded:
		return TriggerPaymentSucceeded
	case billing.EventPaymentFailed:
		return TriggerPaymentFailed
	case billing.EventSubscriptionEnded:
		return TriggerSubscriptionEnded
	default:
		return ""
	}
}
