package intake_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

type failingActivateStore struct {
	*intake.MemoryStore
	err error
}

func (s failingActivateStore) Activate(context.Context, uuid.UUID, intake.Activation) error {
	return s.err
}

func TestActivator_HandleDepositCompleted(t *testing.T) {
	t.Parallel()

	t.Run("activates pending intake", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), depositEvent(in, res)))

		stored, err := e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusConfirmed, stored.Status)
		assert.True(t, stored.DepositPaid)
		require.NotNil(t, stored.ExternalSubscriptionID)
		require.NotNil(t, stored.DepositSessionID)
		assert.Equal(t, res.SessionID, *stored.DepositSessionID)
		require.NotNil(t, stored.TrialStart)
		require.NotNil(t, stored.TrialEnd)
		assert.Equal(t, stored.TrialStart.AddDate(0, 0, 30), *stored.TrialEnd)
		assert.Equal(t, 1, e.sim.SubscriptionCount())
	})

	t.Run("duplicate delivery creates one subscription", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), evt))
		first, err := e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), evt))
		second, err := e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, e.sim.SubscriptionCount())
		assert.Equal(t, *first.ExternalSubscriptionID, *second.ExternalSubscriptionID)
		assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	})

	t.Run("concurrent deliveries create one subscription", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = e.activator.HandleDepositCompleted(context.Background(), evt)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, e.sim.SubscriptionCount())

		stored, err := e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusConfirmed, stored.Status)
	})

	t.Run("session without trigger flag is ignored", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)
		delete(evt.Metadata, intake.MetaActivate)

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), evt))
		assert.Equal(t, 0, e.sim.SubscriptionCount())
	})

	t.Run("unpaid session is ignored", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)
		evt.PaymentStatus = "unpaid"

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), evt))
		assert.Equal(t, 0, e.sim.SubscriptionCount())

		stored, err := e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusPending, stored.Status)
	})

	t.Run("unknown intake", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)
		evt.Metadata[intake.MetaIntakeID] = uuid.NewString()

		err := e.activator.HandleDepositCompleted(context.Background(), evt)
		assert.ErrorIs(t, err, intake.ErrNotFound)
		assert.Equal(t, 0, e.sim.SubscriptionCount())
	})

	t.Run("malformed intake id", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)
		evt.Metadata[intake.MetaIntakeID] = "not-a-uuid"

		err := e.activator.HandleDepositCompleted(context.Background(), evt)
		assert.ErrorIs(t, err, intake.ErrValidation)
	})

	t.Run("cancelled intake is not activated", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		require.NoError(t, e.store.UpdateStatus(context.Background(), in.ID, intake.StatusPending, intake.StatusCancelled, nil))

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), depositEvent(in, res)))
		assert.Equal(t, 0, e.sim.SubscriptionCount())
	})

	t.Run("processor failure leaves intake untouched and redelivery succeeds", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		evt := depositEvent(in, res)
		e.sim.FailNext(billing.SimulatorOpCreateSubscription, billing.ErrProviderRequest)

		err := e.activator.HandleDepositCompleted(context.Background(), evt)
		assert.ErrorIs(t, err, intake.ErrTransientExternal)

		stored, err := e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusPending, stored.Status)
		assert.Nil(t, stored.ExternalSubscriptionID)

		require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), evt))
		stored, err = e.store.Get(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusConfirmed, stored.Status)
		assert.Equal(t, 1, e.sim.SubscriptionCount())
	})

	t.Run("local write failure after subscription creation", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		store := failingActivateStore{MemoryStore: e.store, err: errors.New("disk full")}
		a := intake.NewActivator(store, e.sim, intake.Config{})

		err := a.HandleDepositCompleted(context.Background(), depositEvent(in, res))
		assert.ErrorIs(t, err, intake.ErrPersistence)
		assert.Equal(t, 1, e.sim.SubscriptionCount())
	})

	t.Run("concurrent activation by another writer is not an error", func(t *testing.T) {
		t.Parallel()

		e := newEngine(t)
		in, res := e.startCheckout(t)
		store := failingActivateStore{MemoryStore: e.store, err: intake.ErrConflict}
		a := intake.NewActivator(store, e.sim, intake.Config{})

		assert.NoError(t, a.HandleDepositCompleted(context.Background(), depositEvent(in, res)))
	})

	t.Run("uses configured trial length and metadata", func(t *testing.T) {
		t.Parallel()

		store := intake.NewMemoryStore()
		in := seedIntake(t, store, func(in *intake.Intake) {
			cus := "cus_1"
			in.ExternalCustomerID = &cus
		})
		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		provider := &mockProvider{}
		provider.On("CreateSubscription", mock.Anything, billing.SubscriptionRequest{
			CustomerID: "cus_1",
			PriceID:    "price_starter_usd",
			TrialDays:  14,
			Metadata: map[string]string{
				intake.MetaIntakeID: in.ID.String(),
				intake.MetaPlan:     "starter",
				intake.MetaCurrency: "USD",
			},
			IdempotencyKey: intake.SubscriptionIdempotencyKey(in.ID),
		}).Return(&billing.Subscription{ID: "sub_1", Status: "trialing"}, nil).Once()

		a := intake.NewActivator(store, provider, intake.Config{TrialDays: 14}, intake.WithClock(func() time.Time { return now }))
		evt := depositEvent(in, &intake.CheckoutResult{SessionID: "cs_1"})
		require.NoError(t, a.HandleDepositCompleted(context.Background(), evt))

		stored, err := store.Get(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, "sub_1", *stored.ExternalSubscriptionID)
		assert.Equal(t, now, *stored.TrialStart)
		assert.Equal(t, now.AddDate(0, 0, 14), *stored.TrialEnd)
		provider.AssertExpectations(t)
	})
}

func TestActivator_Notifies(t *testing.T) {
	t.Parallel()

	notified := make(chan intake.Intake, 1)
	e := newEngine(t, intake.WithNotifier(intake.NotifierFunc(func(_ context.Context, in intake.Intake) error {
		notified <- in
		return nil
	})))
	in, res := e.startCheckout(t)

	require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), depositEvent(in, res)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.activator.Wait(ctx))

	select {
	case got := <-notified:
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, intake.StatusConfirmed, got.Status)
	default:
		t.Fatal("activation notice was not sent")
	}
}

func TestActivator_NotifierFailureDoesNotFailActivation(t *testing.T) {
	t.Parallel()

	e := newEngine(t, intake.WithNotifier(intake.NotifierFunc(func(context.Context, intake.Intake) error {
		return errors.New("smtp down")
	})))
	in, res := e.startCheckout(t)

	require.NoError(t, e.activator.HandleDepositCompleted(context.Background(), depositEvent(in, res)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = e.activator.Wait(ctx)

	stored, err := e.store.Get(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, intake.StatusConfirmed, stored.Status)
}
