package billing_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/pkg/billing"
)

const testWebhookSecret = "whsec_test"

func stripeEventPayload(t *testing.T, id, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func newWebhookProvider(t *testing.T) *billing.StripeProvider {
	t.Helper()
	p, err := billing.NewStripeProvider(billing.StripeConfig{
		SecretKey:        "sk_test_123",
		WebhookSecret:    testWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
	})
	require.NoError(t, err)
	return p
}

func TestStripeProvider_ParseWebhook(t *testing.T) {
	t.Parallel()

	p := newWebhookProvider(t)
	ctx := context.Background()

	t.Run("checkout session completed", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_1", "checkout.session.completed", map[string]any{
			"id":             "cs_1",
			"object":         "checkout.session",
			"customer":       "cus_1",
			"payment_status": "paid",
			"metadata":       map[string]string{"intakeId": "abc", "activateSubscription": "true"},
		})

		evt, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", evt.ID)
		assert.Equal(t, billing.EventDepositCompleted, evt.Type)
		assert.Equal(t, "checkout.session.completed", evt.ProviderType)
		assert.Equal(t, "cs_1", evt.SessionID)
		assert.Equal(t, "cus_1", evt.CustomerID)
		assert.Equal(t, billing.PaymentStatusPaid, evt.PaymentStatus)
		assert.Equal(t, "abc", evt.MetadataValue("intakeId"))
	})

	t.Run("invoice payment succeeded reads subscription line", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_2", "invoice.payment_succeeded", map[string]any{
			"id":             "in_1",
			"object":         "invoice",
			"customer":       "cus_1",
			"subscription":   "sub_1",
			"billing_reason": "subscription_cycle",
			"amount_paid":    4900,
			"lines": map[string]any{
				"object": "list",
				"data": []map[string]any{{
					"id":       "il_1",
					"object":   "line_item",
					"type":     "subscription",
					"metadata": map[string]string{"intakeId": "abc"},
					"period":   map[string]any{"start": 1700000000, "end": 1702592000},
				}},
			},
		})

		evt, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, billing.EventPaymentSucceeded, evt.Type)
		assert.Equal(t, "sub_1", evt.SubscriptionID)
		assert.Equal(t, "abc", evt.MetadataValue("intakeId"))
		assert.Equal(t, int64(1702592000), evt.PeriodEnd.Unix())
	})

	t.Run("trial opening invoice is unhandled", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_3", "invoice.payment_succeeded", map[string]any{
			"id":             "in_0",
			"object":         "invoice",
			"subscription":   "sub_1",
			"billing_reason": "subscription_create",
			"amount_paid":    0,
		})

		evt, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, billing.EventUnhandled, evt.Type)
	})

	t.Run("invoice payment failed", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_4", "invoice.payment_failed", map[string]any{
			"id":           "in_2",
			"object":       "invoice",
			"subscription": "sub_1",
		})

		evt, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, billing.EventPaymentFailed, evt.Type)
		assert.Equal(t, "sub_1", evt.SubscriptionID)
	})

	t.Run("subscription deleted", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_5", "customer.subscription.deleted", map[string]any{
			"id":       "sub_1",
			"object":   "subscription",
			"status":   "canceled",
			"metadata": map[string]string{"projectId": "p-1"},
		})

		evt, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, billing.EventSubscriptionEnded, evt.Type)
		assert.Equal(t, "sub_1", evt.SubscriptionID)
		assert.Equal(t, "p-1", evt.MetadataValue("projectId"))
	})

	t.Run("unknown event type", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_6", "customer.updated", map[string]any{
			"id":     "cus_1",
			"object": "customer",
		})

		evt, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, billing.EventUnhandled, evt.Type)
		assert.Equal(t, "customer.updated", evt.ProviderType)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_7", "checkout.session.completed", map[string]any{"id": "cs_1"})

		_, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, "whsec_other", time.Now()))
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_8", "checkout.session.completed", map[string]any{"id": "cs_1"})

		_, err := p.ParseWebhook(ctx, payload, "")
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_9", "checkout.session.completed", map[string]any{"id": "cs_1"})
		sig := billing.SignPayload(payload, testWebhookSecret, time.Now())
		tampered := append([]byte{}, payload...)
		tampered[len(tampered)-2] = ' '

		_, err := p.ParseWebhook(ctx, tampered, sig)
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("stale signature", func(t *testing.T) {
		t.Parallel()
		payload := stripeEventPayload(t, "evt_10", "checkout.session.completed", map[string]any{"id": "cs_1"})

		_, err := p.ParseWebhook(ctx, payload, billing.SignPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
		assert.ErrorIs(t, err, billing.ErrInvalidSignature)
	})
}
