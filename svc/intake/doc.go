// Package intake turns a one-time deposit into a trial-gated recurring
// subscription and keeps each intake's billing status in step with the
// payment processor.
//
// The flow has four parts:
//
//   - CheckoutInitiator resolves prices, ensures exactly one processor
//     customer per intake and opens the deposit checkout session.
//   - Dispatcher verifies webhook deliveries, records each event id in the
//     EventLedger and routes it to one handler. Handler failures are logged
//     and acknowledged in one place; redelivery is the recovery path.
//   - Activator re-reads the intake, drops duplicate deliveries and creates
//     the subscription with a stable idempotency key before recording it.
//   - Projector moves the intake along Lifecycle on invoice and
//     subscription events. Records of the previous project billing model are
//     handled by LegacyProjector with its own state graph.
//
// All store mutations are conditional on the state that was read, so
// concurrent deliveries of the same or related events cannot regress an
// intake or record a second subscription.
//
// Usage:
//
//	store := intake.NewPostgresStore(pool)
//	ledger := intake.NewPostgresLedger(pool)
//	activator := intake.NewActivator(store, provider, cfg, intake.WithLogger(log))
//	projector := intake.NewProjector(store, intake.WithLogger(log))
//	dispatcher := intake.NewDispatcher(provider, ledger, activator, projector, intake.WithLogger(log))
//
//	ack, err := dispatcher.Dispatch(ctx, body, r.Header.Get(billing.SignatureHeader))
package intake
