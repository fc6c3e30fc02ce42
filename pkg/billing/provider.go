package billing

import (
	"context"
	"time"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// Provider is the payment processor surface used by the activation engine.
type Provider interface {
	// CreateCustomer creates a billing customer. Requests carrying the same
	// IdempotencyKey return the same customer.
	CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error)

	// CreateDepositSession opens a hosted checkout page for a one-time deposit.
	CreateDepositSession(ctx context.Context, req DepositSessionRequest) (*DepositSession, error)

	// CreateSubscription starts a recurring subscription in trial.
	// Requests carrying the same IdempotencyKey return the same subscription.
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error)

	// ParseWebhook verifies the signature and normalizes the payload.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

type CustomerRequest struct {
	Email          string
	Name           string
	Metadata       map[string]string
	IdempotencyKey string
}

type Customer struct {
	ID string
}

type DepositSessionRequest struct {
	CustomerID     string
	DepositPriceID string
	SuccessURL     string
	CancelURL      string
	ReferenceID    string
	Metadata       map[string]string
}

type DepositSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

type SubscriptionRequest struct {
	CustomerID     string
	PriceID        string
	TrialDays      int
	Metadata       map[string]string
	IdempotencyKey string
}

// Subscription is the processor's view of a created subscription.
// Trial bounds are taken from the processor response, not computed locally.
type Subscription struct {
	ID               string
	Status           string
	TrialStart       time.Time
	TrialEnd         time.Time
	CurrentPeriodEnd time.Time
}

func (r CustomerRequest) validate() error {
	if r.IdempotencyKey == "" {
		return ErrInvalidRequest
	}
	return nil
}

func (r DepositSessionRequest) validate() error {
	if r.CustomerID == "" || r.DepositPriceID == "" || r.SuccessURL == "" || r.CancelURL == "" {
		return ErrInvalidRequest
	}
	return nil
}

func (r SubscriptionRequest) validate() error {
	if r.CustomerID == "" || r.PriceID == "" || r.TrialDays < 0 || r.IdempotencyKey == "" {
		return ErrInvalidRequest
	}
	return nil
}
