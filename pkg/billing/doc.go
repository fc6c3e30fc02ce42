// Package billing abstracts the external payment processor used to collect
// deposits and run recurring subscriptions.
//
// The Provider interface covers the four calls the activation engine needs:
// creating a customer, opening a one-time deposit checkout session, creating
// a trialing subscription and verifying inbound webhooks. Two implementations
// are shipped:
//
//   - StripeProvider talks to Stripe through stripe-go. Customer and
//     subscription creation carry caller-supplied idempotency keys, so a
//     retried request collapses into the original resource.
//   - Simulator keeps everything in memory. It is selected once at start-up
//     for local runs and demos and signs its own webhook payloads with the
//     same scheme Stripe uses.
//
// Webhook payloads are normalized into Event values. Only the kinds the engine
// reacts to get a dedicated EventType; everything else is reported as
// EventUnhandled and should be acknowledged without side effects.
//
// Example:
//
//	provider, err := billing.NewStripeProvider(cfg)
//	if err != nil {
//		return err
//	}
//	event, err := provider.ParseWebhook(ctx, body, r.Header.Get(billing.SignatureHeader))
//	if errors.Is(err, billing.ErrInvalidSignature) {
//		// reject with 400
//	}
package billing
