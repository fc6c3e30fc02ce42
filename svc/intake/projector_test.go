package intake_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

func TestProjector_Sequence(t *testing.T) {
	t.Parallel()

	store := intake.NewMemoryStore()
	in := seedIntake(t, store, withSubscription("sub_1", intake.StatusConfirmed))
	p := intake.NewProjector(store)
	ctx := context.Background()

	periodEnd := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	steps := []struct {
		name string
		evt  *billing.Event
		want intake.Status
	}{
		{"payment succeeded", &billing.Event{ID: "evt_1", Type: billing.EventPaymentSucceeded, SubscriptionID: "sub_1", PeriodEnd: periodEnd}, intake.StatusActive},
		{"payment failed", subscriptionEvent(billing.EventPaymentFailed, "sub_1"), intake.StatusPastDue},
		{"payment recovered", subscriptionEvent(billing.EventPaymentSucceeded, "sub_1"), intake.StatusActive},
		{"subscription ended", subscriptionEvent(billing.EventSubscriptionEnded, "sub_1"), intake.StatusCancelled},
		{"late payment after cancel", subscriptionEvent(billing.EventPaymentSucceeded, "sub_1"), intake.StatusCancelled},
		{"late failure after cancel", subscriptionEvent(billing.EventPaymentFailed, "sub_1"), intake.StatusCancelled},
	}

	for _, step := range steps {
		var err error
		switch step.evt.Type {
		case billing.EventPaymentSucceeded:
			err = p.HandlePaymentSucceeded(ctx, step.evt)
		case billing.EventPaymentFailed:
			err = p.HandlePaymentFailed(ctx, step.evt)
		case billing.EventSubscriptionEnded:
			err = p.HandleSubscriptionEnded(ctx, step.evt)
		}
		require.NoError(t, err, step.name)

		stored, err := store.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, stored.Status, step.name)
	}

	stored, err := store.Get(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, *stored.CurrentPeriodEnd)
}

func TestProjector_Transitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    intake.Status
		trigger billing.EventType
		want    intake.Status
	}{
		{"building becomes active", intake.StatusBuilding, billing.EventPaymentSucceeded, intake.StatusActive},
		{"past due becomes active", intake.StatusPastDue, billing.EventPaymentSucceeded, intake.StatusActive},
		{"active stays active", intake.StatusActive, billing.EventPaymentSucceeded, intake.StatusActive},
		{"building becomes past due", intake.StatusBuilding, billing.EventPaymentFailed, intake.StatusPastDue},
		{"active becomes past due", intake.StatusActive, billing.EventPaymentFailed, intake.StatusPastDue},
		{"past due failure is a no-op", intake.StatusPastDue, billing.EventPaymentFailed, intake.StatusPastDue},
		{"pending payment is a no-op", intake.StatusPending, billing.EventPaymentSucceeded, intake.StatusPending},
		{"pending failure is a no-op", intake.StatusPending, billing.EventPaymentFailed, intake.StatusPending},
		{"pending can be cancelled", intake.StatusPending, billing.EventSubscriptionEnded, intake.StatusCancelled},
		{"building can be cancelled", intake.StatusBuilding, billing.EventSubscriptionEnded, intake.StatusCancelled},
		{"past due can be cancelled", intake.StatusPastDue, billing.EventSubscriptionEnded, intake.StatusCancelled},
		{"cancelled stays cancelled", intake.StatusCancelled, billing.EventSubscriptionEnded, intake.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := intake.NewMemoryStore()
			in := seedIntake(t, store, withSubscription("sub_"+uuid.NewString(), tt.from))
			p := intake.NewProjector(store)
			evt := subscriptionEvent(tt.trigger, *in.ExternalSubscriptionID)

			var err error
			switch tt.trigger {
			case billing.EventPaymentSucceeded:
				err = p.HandlePaymentSucceeded(context.Background(), evt)
			case billing.EventPaymentFailed:
				err = p.HandlePaymentFailed(context.Background(), evt)
			case billing.EventSubscriptionEnded:
				err = p.HandleSubscriptionEnded(context.Background(), evt)
			}
			require.NoError(t, err)

			stored, err := store.Get(context.Background(), in.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func TestProjector_UnknownSubscription(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	store.On("GetBySubscriptionID", mock.Anything, "sub_missing").Return(nil, intake.ErrNotFound).Once()
	p := intake.NewProjector(store)

	require.NoError(t, p.HandlePaymentFailed(context.Background(), subscriptionEvent(billing.EventPaymentFailed, "sub_missing")))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProjector_RetriesOnConcurrentChange(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	sub := "sub_1"
	store := &mockStore{}
	store.On("GetBySubscriptionID", mock.Anything, sub).
		Return(&intake.Intake{ID: id, ExternalSubscriptionID: &sub, Status: intake.StatusConfirmed}, nil).Once()
	store.On("UpdateStatus", mock.Anything, id, intake.StatusConfirmed, intake.StatusPastDue, (*time.Time)(nil)).
		Return(intake.ErrConflict).Once()
	store.On("GetBySubscriptionID", mock.Anything, sub).
		Return(&intake.Intake{ID: id, ExternalSubscriptionID: &sub, Status: intake.StatusActive}, nil).Once()
	store.On("UpdateStatus", mock.Anything, id, intake.StatusActive, intake.StatusPastDue, (*time.Time)(nil)).
		Return(nil).Once()

	p := intake.NewProjector(store)
	require.NoError(t, p.HandlePaymentFailed(context.Background(), subscriptionEvent(billing.EventPaymentFailed, sub)))
	store.AssertExpectations(t)
}

func TestProjector_StoreFailure(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	store.On("GetBySubscriptionID", mock.Anything, "sub_1").Return(nil, errors.New("connection refused")).Once()
	p := intake.NewProjector(store)

	err := p.HandleSubscriptionEnded(context.Background(), subscriptionEvent(billing.EventSubscriptionEnded, "sub_1"))
	assert.ErrorIs(t, err, intake.ErrPersistence)
}

func TestProjector_StartBuild(t *testing.T) {
	t.Parallel()

	t.Run("confirmed moves to building", func(t *testing.T) {
		t.Parallel()

		store := intake.NewMemoryStore()
		in := seedIntake(t, store, withSubscription("sub_1", intake.StatusConfirmed))

		got, err := intake.NewProjector(store).StartBuild(context.Background(), in.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.StatusBuilding, got.Status)
	})

	t.Run("pending cannot start building", func(t *testing.T) {
		t.Parallel()

		store := intake.NewMemoryStore()
		in := seedIntake(t, store)

		_, err := intake.NewProjector(store).StartBuild(context.Background(), in.ID)
		assert.ErrorIs(t, err, intake.ErrConflict)
	})

	t.Run("unknown intake", func(t *testing.T) {
		t.Parallel()

		_, err := intake.NewProjector(intake.NewMemoryStore()).StartBuild(context.Background(), uuid.New())
		assert.ErrorIs(t, err, intake.ErrNotFound)
	})
}
