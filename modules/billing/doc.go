// Package billing exposes the intake billing flow over HTTP.
//
// Routes, relative to where Router is mounted:
//
//	POST /intakes                    create a pending intake
//	GET  /intakes/{id}/status        poll status and trial dates
//	POST /intakes/{id}/build         operator marks the build as started
//	POST /checkout/start             open a deposit checkout, returns checkoutUrl
//	POST /webhooks/payment           signed processor notifications
//	GET  /simulator/pay?session=...  simulated hosted page (simulator only)
//
// Every verified webhook is answered with 200, even when handling it failed;
// the processor's redelivery plus the engine's idempotency checks are the
// recovery path. A bad signature or an unparseable payload is a 400.
//
// Domain errors from svc/intake are mapped to HTTP statuses in one place
// and rendered by the ErrorHandler passed to each service, which also logs
// them. Server-side details never reach the client.
package billing
