package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeConfig holds configuration for the Stripe provider.
type StripeConfig struct {
	SecretKey         string        `env:"STRIPE_SECRET_KEY"`
	WebhookSecret     string        `env:"STRIPE_WEBHOOK_SECRET"`
	APIURL            string        `env:"STRIPE_API_URL"`
	MaxNetworkRetries int64         `env:"STRIPE_MAX_NETWORK_RETRIES" envDefault:"0"`
	WebhookTolerance  time.Duration `env:"STRIPE_WEBHOOK_TOLERANCE" envDefault:"5m"`
}

// StripeProvider implements Provider on top of the Stripe API.
type StripeProvider struct {
	api    *client.API
	config StripeConfig
	log    *slog.Logger
}

// StripeOption configures a StripeProvider.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	log        *slog.Logger
	httpClient *http.Client
}

// WithStripeLogger routes the SDK's own logging and provider logs to log.
func WithStripeLogger(log *slog.Logger) StripeOption {
	return func(o *stripeOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStripeHTTPClient overrides the HTTP client used for API calls.
func WithStripeHTTPClient(c *http.Client) StripeOption {
	return func(o *stripeOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// NewStripeProvider creates a Stripe-backed Provider.
// Network retries inside the SDK are disabled unless configured: webhook
// redelivery is the retry mechanism for the activation flow.
func NewStripeProvider(cfg StripeConfig, opts ...StripeOption) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("stripe secret key is required"))
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("stripe webhook secret is required"))
	}

	o := &stripeOptions{
		log:        slog.New(slog.DiscardHandler),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        o.httpClient,
		LeveledLogger:     &leveledLogger{log: o.log},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &StripeProvider{
		api:    api,
		config: cfg,
		log:    o.log,
	}, nil
}

// CreateCustomer creates a Stripe customer under the request's idempotency key.
func (p *StripeProvider) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	if err := req.validate(); err != nil {
		return nil, errors.Join(err, errors.New("idempotency key is required"))
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	if req.Name != "" {
		params.Name = stripe.String(req.Name)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	c, err := p.api.Customers.New(params)
	if err != nil {
		return nil, classifyStripeError("create customer", err)
	}

	return &Customer{ID: c.ID}, nil
}

// CreateDepositSession opens a payment-mode checkout session for the deposit
// price. The payment method is kept on the customer for the later subscription.
func (p *StripeProvider) CreateDepositSession(ctx context.Context, req DepositSessionRequest) (*DepositSession, error) {
	if err := req.validate(); err != nil {
		return nil, errors.Join(err, errors.New("customer, deposit price and redirect urls are required"))
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:   stripe.String(req.CustomerID),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.DepositPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			SetupFutureUsage: stripe.String("off_session"),
		},
	}
	params.Context = ctx
	if req.ReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ReferenceID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, classifyStripeError("create checkout session", err)
	}

	out := &DepositSession{ID: s.ID, URL: s.URL}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out, nil
}

// CreateSubscription creates a trialing subscription. Nothing is charged
// until the trial ends.
func (p *StripeProvider) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	if err := req.validate(); err != nil {
		return nil, errors.Join(err, errors.New("customer, price and idempotency key are required"))
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(req.PriceID)},
		},
		TrialPeriodDays: stripe.Int64(int64(req.TrialDays)),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	s, err := p.api.Subscriptions.New(params)
	if err != nil {
		return nil, classifyStripeError("create subscription", err)
	}

	return &Subscription{
		ID:               s.ID,
		Status:           string(s.Status),
		TrialStart:       unixTime(s.TrialStart),
		TrialEnd:         unixTime(s.TrialEnd),
		CurrentPeriodEnd: unixTime(s.CurrentPeriodEnd),
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the event.
func (p *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	return parseStripeWebhook(payload, signature, p.config.WebhookSecret, p.config.WebhookTolerance)
}

func parseStripeWebhook(payload []byte, signature, secret string, tolerance time.Duration) (*Event, error) {
	if signature == "" {
		return nil, errors.Join(ErrInvalidSignature, webhook.ErrNotSigned)
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return nil, errors.Join(ErrInvalidSignature, err)
		default:
			return nil, errors.Join(ErrInvalidPayload, err)
		}
	}

	return normalizeStripeEvent(evt)
}

// classifyStripeError separates requests Stripe refused from transport and
// server-side failures.
func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests &&
			stripeErr.HTTPStatusCode != http.StatusConflict {
			return errors.Join(ErrProviderRejected, fmt.Errorf("%s: %w", op, err))
		}
	}
	return errors.Join(ErrProviderRequest, fmt.Errorf("%s: %w", op, err))
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// leveledLogger adapts slog to stripe.LeveledLoggerInterface.
type leveledLogger struct {
	log *slog.Logger
}

func (l *leveledLogger) Debugf(format string, v ...any) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...any) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}
