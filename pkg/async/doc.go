// Package async runs functions in goroutines and exposes their results as
// typed futures.
//
// Async starts a computation and returns a *Future that can be awaited, with
// or without a timeout. Tracker is used for fire-and-forget work such as
// notification emails: callers start the work with Go and never await the
// future, while the process drains the tracker during graceful shutdown.
//
//	var pending async.Tracker
//	async.Go(&pending, context.WithoutCancel(ctx), intake, sendActivationEmail)
//	...
//	_ = pending.Wait(shutdownCtx)
package async
