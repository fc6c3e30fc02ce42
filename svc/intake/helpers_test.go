package intake_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

const testWebhookSecret = "whsec_test_secret"

func testMatrix() intake.PriceMatrix {
	return intake.PriceMatrix{
		Deposits: map[string]string{
			"USD": "price_deposit_usd",
			"EUR": "price_deposit_eur",
		},
		Recurring: map[intake.Plan]map[string]string{
			intake.PlanStarter: {"USD": "price_starter_usd", "EUR": "price_starter_eur"},
			intake.PlanGrowth:  {"USD": "price_growth_usd"},
		},
	}
}

func newResolver(t *testing.T) *intake.PriceResolver {
	t.Helper()
	r, err := intake.NewPriceResolver(testMatrix())
	require.NoError(t, err)
	return r
}

// seedIntake stores a pending starter/USD intake, applying mutators first.
func seedIntake(t *testing.T, store intake.Store, mutators ...func(*intake.Intake)) *intake.Intake {
	t.Helper()
	now := time.Now().UTC()
	in := &intake.Intake{
		ID:        uuid.New(),
		Plan:      intake.PlanStarter,
		Currency:  "USD",
		Email:     "client@example.com",
		Name:      "Acme website",
		Status:    intake.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range mutators {
		m(in)
	}
	require.NoError(t, store.Create(context.Background(), in))
	return in
}

func withSubscription(id string, status intake.Status) func(*intake.Intake) {
	return func(in *intake.Intake) {
		in.ExternalSubscriptionID = &id
		in.Status = status
	}
}

// engine wires every component against the simulator and in-memory stores.
type engine struct {
	store      *intake.MemoryStore
	ledger     *intake.MemoryLedger
	sim        *billing.Simulator
	checkout   *intake.CheckoutInitiator
	activator  *intake.Activator
	projector  *intake.Projector
	dispatcher *intake.Dispatcher
}

func newEngine(t *testing.T, opts ...intake.Option) *engine {
	t.Helper()
	e := &engine{
		store:  intake.NewMemoryStore(),
		ledger: intake.NewMemoryLedger(),
		sim:    billing.NewSimulator(testWebhookSecret, billing.WithSimulatorPrices(newResolver(t).PriceIDs()...)),
	}
	cfg := intake.Config{
		TrialDays:          30,
		CheckoutSuccessURL: "https://example.com/checkout/success?intake={intakeId}",
		CheckoutCancelURL:  "https://example.com/checkout/cancel?intake={intakeId}",
	}
	e.checkout = intake.NewCheckoutInitiator(e.store, e.sim, newResolver(t), cfg, opts...)
	e.activator = intake.NewActivator(e.store, e.sim, cfg, opts...)
	e.projector = intake.NewProjector(e.store, opts...)
	e.dispatcher = intake.NewDispatcher(e.sim, e.ledger, e.activator, e.projector, opts...)
	return e
}

// startCheckout seeds an intake and opens a deposit session for it.
func (e *engine) startCheckout(t *testing.T) (*intake.Intake, *intake.CheckoutResult) {
	t.Helper()
	in := seedIntake(t, e.store)
	res, err := e.checkout.Start(context.Background(), intake.StartCheckoutInput{
		IntakeID: in.ID,
		Plan:     intake.PlanStarter,
		Currency: "usd",
	})
	require.NoError(t, err)
	return in, res
}

func depositEvent(in *intake.Intake, res *intake.CheckoutResult) *billing.Event {
	return &billing.Event{
		ID:            "evt_" + res.SessionID,
		Type:          billing.EventDepositCompleted,
		ProviderType:  "checkout.session.completed",
		SessionID:     res.SessionID,
		CustomerID:    res.CustomerID,
		PaymentStatus: billing.PaymentStatusPaid,
		Metadata: map[string]string{
			intake.MetaIntakeID:         in.ID.String(),
			intake.MetaPlan:             string(intake.PlanStarter),
			intake.MetaCurrency:         "USD",
			intake.MetaRecurringPriceID: "price_starter_usd",
			intake.MetaActivate:         "true",
		},
	}
}

func subscriptionEvent(t billing.EventType, subscriptionID string) *billing.Event {
	return &billing.Event{
		ID:             "evt_" + uuid.NewString(),
		Type:           t,
		SubscriptionID: subscriptionID,
	}
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCustomer(ctx context.Context, req billing.CustomerRequest) (*billing.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Customer), args.Error(1)
}

func (m *mockProvider) CreateDepositSession(ctx context.Context, req billing.DepositSessionRequest) (*billing.DepositSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.DepositSession), args.Error(1)
}

func (m *mockProvider) CreateSubscription(ctx context.Context, req billing.SubscriptionRequest) (*billing.Subscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, in *intake.Intake) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*intake.Intake, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intake.Intake), args.Error(1)
}

func (m *mockStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*intake.Intake, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intake.Intake), args.Error(1)
}

func (m *mockStore) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error) {
	args := m.Called(ctx, id, customerID)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Activate(ctx context.Context, id uuid.UUID, a intake.Activation) error {
	return m.Called(ctx, id, a).Error(0)
}

func (m *mockStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to intake.Status, periodEnd *time.Time) error {
	return m.Called(ctx, id, from, to, periodEnd).Error(0)
}
