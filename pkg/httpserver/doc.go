// Package httpserver runs an http.Handler with graceful shutdown and
// provides liveness and readiness handlers.
//
// Run blocks until its context is cancelled or the process receives
// SIGINT/SIGTERM. Shutdown then stops accepting connections, waits for
// in-flight requests and runs the stop hooks, all within the shutdown
// timeout:
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook("activation_notifications", activator.Wait),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Health endpoints:
//
//	r.Get("/healthz", httpserver.LivenessHandler())
//	r.Get("/readyz", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)},
//	))
//
// Errors from Run and Shutdown wrap ErrStart and ErrShutdown.
package httpserver
