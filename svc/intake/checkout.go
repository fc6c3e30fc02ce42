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
)

// StartCheckoutInput identifies the intake and the plan being purchased.
type StartCheckoutInput struct {
	IntakeID uuid.UUID
	Plan     Plan
	Currency string
}

// CheckoutResult is where the client is sent to pay the deposit.
type CheckoutResult struct {
	CheckoutURL string
	SessionID   string
	CustomerID  string
	ExpiresAt   time.Time
}

// CheckoutInitiator opens deposit checkout sessions.
type CheckoutInitiator struct {
	store    Store
	provider billing.Provider
	prices   *PriceResolver
	cfg      Config
	log      *slog.Logger
}

func NewCheckoutInitiator(store Store, provider billing.Provider, prices *PriceResolver, cfg Config, opts ...Option) *CheckoutInitiator {
	if store == nil || provider == nil || prices == nil {
		panic("intake: checkout initiator requires store, provider and price resolver")
	}
	o := newOptions(opts)
	return &CheckoutInitiator{
		store:    store,
		provider: provider,
		prices:   prices,
		cfg:      cfg,
		log:      o.log.With(logger.Component("checkout")),
	}
}

// Start opens a deposit checkout for an intake and returns its redirect URL.
//
// Side effects are ordered: the customer is created and persisted before the
// session is opened, so a retried call reuses it. No subscription is created
// here.
func (c *CheckoutInitiator) Start(ctx context.Context, input StartCheckoutInput) (*CheckoutResult, error) {
	if input.IntakeID == uuid.Nil {
		return nil, fmt.Errorf("%w: intake id is required", ErrValidation)
	}
	if !input.Plan.Valid() {
		return nil, fmt.Errorf("%w: unknown plan %q", ErrValidation, input.Plan)
	}

	in, err := c.store.Get(ctx, input.IntakeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: intake %s", ErrNotFound, input.IntakeID)
		}
		return nil, errors.Join(ErrPersistence, err)
	}

	if in.HasSubscription() {
		return nil, fmt.Errorf("%w: intake %s already has subscription %s", ErrConflict, in.ID, *in.ExternalSubscriptionID)
	}

	// Resolved before any external call so a misconfigured pair never
	// leaves a customer behind.
	prices, err := c.prices.Resolve(input.Plan, input.Currency)
	if err != nil {
		return nil, err
	}
	currency, _ := NormalizeCurrency(input.Currency)

	customerID, err := c.ensureCustomer(ctx, in)
	if err != nil {
		return nil, err
	}

	successURL, cancelURL := c.cfg.redirectURLs(in.ID)
	session, err := c.provider.CreateDepositSession(ctx, billing.DepositSessionRequest{
		CustomerID:     customerID,
		DepositPriceID: prices.DepositPriceID,
		SuccessURL:     successURL,
		CancelURL:      cancelURL,
		ReferenceID:    in.ID.String(),
		Metadata: map[string]string{
			MetaIntakeID:         in.ID.String(),
			MetaPlan:             string(input.Plan),
			MetaCurrency:         currency,
			MetaRecurringPriceID: prices.RecurringPriceID,
			MetaActivate:         "true",
		},
	})
	if err != nil {
		c.log.ErrorContext(ctx, "failed to open deposit session",
			logger.IntakeID(in.ID),
			logger.CustomerID(customerID),
			logger.Error(err),
		)
		return nil, errors.Join(ErrTransientExternal, err)
	}

	c.log.InfoContext(ctx, "deposit checkout started",
		logger.IntakeID(in.ID),
		logger.CustomerID(customerID),
		logger.SessionID(session.ID),
		slog.String("plan", string(input.Plan)),
		slog.String("currency", currency),
	)

	return &CheckoutResult{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
		CustomerID:  customerID,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// ensureCustomer returns the intake's customer id, creating and persisting
// one first if needed.
func (c *CheckoutInitiator) ensureCustomer(ctx context.Context, in *Intake) (string, error) {
	if in.HasCustomer() {
		return *in.ExternalCustomerID, nil
	}

	customer, err := c.provider.CreateCustomer(ctx, billing.CustomerRequest{
		Email:          in.Email,
		Name:           in.Name,
		Metadata:       map[string]string{MetaIntakeID: in.ID.String()},
		IdempotencyKey: CustomerIdempotencyKey(in.ID),
	})
	if err != nil {
		c.log.ErrorContext(ctx, "failed to create billing customer", logger.IntakeID(in.ID), logger.Error(err))
		return "", errors.Join(ErrTransientExternal, err)
	}

	stored, err := c.store.SetCustomerID(ctx, in.ID, customer.ID)
	if err != nil {
		c.log.ErrorContext(ctx, "billing customer created but not recorded",
			logger.IntakeID(in.ID),
			logger.CustomerID(customer.ID),
			logger.Error(err),
		)
		return "", errors.Join(ErrPersistence, err)
	}

	if stored != customer.ID {
		c.log.WarnContext(ctx, "intake already had a customer, using stored one",
			logger.IntakeID(in.ID),
			logger.CustomerID(stored),
			slog.String("discarded_customer_id", customer.ID),
		)
	}

	return stored, nil
}
