package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// Simulator is an in-memory Provider for local runs and tests.
// It honors idempotency keys and produces webhook payloads signed exactly like
// Stripe's, so the same verification path is exercised end to end.
type Simulator struct {
	mu sync.Mutex

	secret      string
	checkoutURL string
	now         func() time.Time
	prices      map[string]struct{}

	seq              int
	customers        map[string]Customer
	customerKeys     map[string]string
	sessions         map[string]simSession
	subscriptions    map[string]simSubscription
	subscriptionKeys map[string]string
	failures         map[string]error
}

type simSession struct {
	DepositSession
	customerID string
	metadata   map[string]string
}

type simSubscription struct {
	Subscription
	customerID string
	metadata   map[string]string
}

// Simulator operations accepted by FailNext.
const (
	SimulatorOpCreateCustomer     = "create_customer"
	SimulatorOpCreateSession      = "create_session"
	SimulatorOpCreateSubscription = "create_subscription"
)

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithSimulatorClock overrides the clock used for trial and period dates.
func WithSimulatorClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSimulatorCheckoutURL sets the base URL of generated checkout pages.
func WithSimulatorCheckoutURL(base string) SimulatorOption {
	return func(s *Simulator) {
		if base != "" {
			s.checkoutURL = base
		}
	}
}

// WithSimulatorPrices restricts accepted price ids. By default any id is accepted.
func WithSimulatorPrices(ids ...string) SimulatorOption {
	return func(s *Simulator) {
		if s.prices == nil {
			s.prices = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			s.prices[id] = struct{}{}
		}
	}
}

// NewSimulator creates an in-memory provider signing webhooks with secret.
func NewSimulator(secret string, opts ...SimulatorOption) *Simulator {
	if secret == "" {
		panic("billing: simulator webhook secret cannot be empty")
	}

	s := &Simulator{
		secret:           secret,
		checkoutURL:      "https://checkout.simulator.local/pay",
		now:              time.Now,
		customers:        make(map[string]Customer),
		customerKeys:     make(map[string]string),
		sessions:         make(map[string]simSession),
		subscriptions:    make(map[string]simSubscription),
		subscriptionKeys: make(map[string]string),
		failures:         make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNext makes the next call of op return err.
func (s *Simulator) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Simulator) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(SimulatorOpCreateCustomer); err != nil {
		return nil, err
	}
	if id, ok := s.customerKeys[req.IdempotencyKey]; ok {
		c := s.customers[id]
		return &c, nil
	}

	c := Customer{ID: s.nextID("cus_sim")}
	s.customers[c.ID] = c
	s.customerKeys[req.IdempotencyKey] = c.ID
	return &c, nil
}

func (s *Simulator) CreateDepositSession(ctx context.Context, req DepositSessionRequest) (*DepositSession, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(SimulatorOpCreateSession); err != nil {
		return nil, err
	}
	if _, ok := s.customers[req.CustomerID]; !ok {
		return nil, errors.Join(ErrProviderRejected, ErrCustomerNotFound)
	}
	if err := s.checkPrice(req.DepositPriceID); err != nil {
		return nil, err
	}

	id := s.nextID("cs_sim")
	sess := simSession{
		DepositSession: DepositSession{
			ID:        id,
			URL:       s.checkoutURL + "?session=" + url.QueryEscape(id),
			ExpiresAt: s.now().Add(24 * time.Hour).UTC(),
		},
		customerID: req.CustomerID,
		metadata:   maps.Clone(req.Metadata),
	}
	s.sessions[id] = sess

	out := sess.DepositSession
	return &out, nil
}

func (s *Simulator) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailure(SimulatorOpCreateSubscription); err != nil {
		return nil, err
	}
	if id, ok := s.subscriptionKeys[req.IdempotencyKey]; ok {
		out := s.subscriptions[id].Subscription
		return &out, nil
	}
	if _, ok := s.customers[req.CustomerID]; !ok {
		return nil, errors.Join(ErrProviderRejected, ErrCustomerNotFound)
	}
	if err := s.checkPrice(req.PriceID); err != nil {
		return nil, err
	}

	start := s.now().UTC().Truncate(time.Second)
	end := start.AddDate(0, 0, req.TrialDays)
	sub := simSubscription{
		Subscription: Subscription{
			ID:               s.nextID("sub_sim"),
			Status:           string(stripe.SubscriptionStatusTrialing),
			TrialStart:       start,
			TrialEnd:         end,
			CurrentPeriodEnd: end,
		},
		customerID: req.CustomerID,
		metadata:   maps.Clone(req.Metadata),
	}
	s.subscriptions[sub.ID] = sub
	s.subscriptionKeys[req.IdempotencyKey] = sub.ID

	out := sub.Subscription
	return &out, nil
}

// ParseWebhook verifies payloads produced by the simulator's event builders.
func (s *Simulator) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	return parseStripeWebhook(payload, signature, s.secret, 0)
}

// SubscriptionCount returns how many distinct subscriptions were created.
func (s *Simulator) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

// CustomerCount returns how many distinct customers were created.
func (s *Simulator) CustomerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

// SessionCount returns how many checkout sessions were opened.
func (s *Simulator) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sign returns a signature header for payload, timestamped with the wall
// clock so verification tolerance is not affected by WithSimulatorClock.
func (s *Simulator) Sign(payload []byte) string {
	return SignPayload(payload, s.secret, time.Now())
}

// CompleteDeposit builds a signed "checkout session completed" event for a
// session previously opened through the simulator.
func (s *Simulator) CompleteDeposit(sessionID string) ([]byte, string, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown session %s", ErrInvalidRequest, sessionID)
	}

	return s.buildEvent(stripeCheckoutCompleted, map[string]any{
		"id":             sess.ID,
		"object":         "checkout.session",
		"mode":           "payment",
		"customer":       sess.customerID,
		"payment_status": PaymentStatusPaid,
		"status":         "complete",
		"metadata":       sess.metadata,
	})
}

// PayInvoice builds a signed "invoice payment succeeded" event for a subscription.
func (s *Simulator) PayInvoice(subscriptionID string) ([]byte, string, error) {
	return s.invoiceEvent(stripeInvoicePaymentSucceeded, subscriptionID, true)
}

// FailInvoice builds a signed "invoice payment failed" event for a subscription.
func (s *Simulator) FailInvoice(subscriptionID string) ([]byte, string, error) {
	return s.invoiceEvent(stripeInvoicePaymentFailed, subscriptionID, false)
}

// EndSubscription builds a signed "subscription deleted" event.
func (s *Simulator) EndSubscription(subscriptionID string) ([]byte, string, error) {
	s.mu.Lock()
	sub, ok := s.subscriptions[subscriptionID]
	if ok {
		sub.Status = string(stripe.SubscriptionStatusCanceled)
		s.subscriptions[subscriptionID] = sub
	}
	s.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown subscription %s", ErrInvalidRequest, subscriptionID)
	}

	return s.buildEvent(stripeCustomerSubscriptionDelete, map[string]any{
		"id":                 sub.ID,
		"object":             "subscription",
		"customer":           sub.customerID,
		"status":             sub.Status,
		"metadata":           sub.metadata,
		"current_period_end": sub.CurrentPeriodEnd.Unix(),
	})
}

// Event builds a signed event of an arbitrary Stripe type around object.
func (s *Simulator) Event(eventType string, object map[string]any) ([]byte, string, error) {
	return s.buildEvent(eventType, object)
}

func (s *Simulator) invoiceEvent(eventType, subscriptionID string, paid bool) ([]byte, string, error) {
	s.mu.Lock()
	sub, ok := s.subscriptions[subscriptionID]
	s.mu.Unlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown subscription %s", ErrInvalidRequest, subscriptionID)
	}

	periodStart := sub.CurrentPeriodEnd
	periodEnd := periodStart.AddDate(0, 1, 0)
	var amountPaid int64
	if paid {
		amountPaid = 1
	}

	return s.buildEvent(eventType, map[string]any{
		"id":             s.syncNextID("in_sim"),
		"object":         "invoice",
		"customer":       sub.customerID,
		"subscription":   sub.ID,
		"billing_reason": "subscription_cycle",
		"amount_paid":    amountPaid,
		"paid":           paid,
		"period_end":     periodEnd.Unix(),
		"lines": map[string]any{
			"object": "list",
			"data": []map[string]any{
				{
					"id":       s.syncNextID("il_sim"),
					"object":   "line_item",
					"type":     "subscription",
					"metadata": sub.metadata,
					"period": map[string]any{
						"start": periodStart.Unix(),
						"end":   periodEnd.Unix(),
					},
				},
			},
		},
	})
}

func (s *Simulator) buildEvent(eventType string, object map[string]any) ([]byte, string, error) {
	payload, err := json.Marshal(map[string]any{
		"id":          s.syncNextID("evt_sim"),
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     s.now().Unix(),
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		return nil, "", errors.Join(ErrSimulatorEventType, err)
	}
	return payload, s.Sign(payload), nil
}

func (s *Simulator) checkPrice(id string) error {
	if s.prices == nil {
		return nil
	}
	if _, ok := s.prices[id]; !ok {
		return errors.Join(ErrProviderRejected, fmt.Errorf("%w: %s", ErrUnknownPriceID, id))
	}
	return nil
}

func (s *Simulator) takeFailure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

// nextID must be called with s.mu held.
func (s *Simulator) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%06d", prefix, s.seq)
}

func (s *Simulator) syncNextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID(prefix)
}

// SignPayload produces a Stripe-Signature header value for payload.
func SignPayload(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}
