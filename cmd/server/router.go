package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/intakebilling/handler"
	"github.com/dmitrymomot/intakebilling/modules/billing"
	"github.com/dmitrymomot/intakebilling/pkg/clientip"
	"github.com/dmitrymomot/intakebilling/pkg/environment"
	"github.com/dmitrymomot/intakebilling/pkg/httpserver"
	"github.com/dmitrymomot/intakebilling/pkg/ratelimiter"
	"github.com/dmitrymomot/intakebilling/pkg/requestid"
)

func newRouter(cfg appConfig, e *engine, limiter ratelimiter.RateLimiter, log *slog.Logger, checks ...httpserver.Check) http.Handler {
	ips := clientip.New(cfg.TrustedIPHeaders...)
	errHandler := handler.NewErrorHandler(log)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		ips.Middleware,
		environment.Middleware(cfg.environment()),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", requestid.Header},
			ExposedHeaders: []string{requestid.Header, "Retry-After"},
			MaxAge:         300,
		}),
	)

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, cfg.ReadinessTimeout, checks...))

	denied := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := handler.JSONError(handler.ErrTooManyRequests).Render(w, r); err != nil {
			log.ErrorContext(r.Context(), "render rate limit response", slog.Any("error", err))
		}
	})
	checkoutLimit := ratelimiter.Middleware(limiter, ratelimiter.Prefix("checkout", ips.KeyFunc),
		ratelimiter.WithFailOpen(),
		ratelimiter.WithDeniedHandler(denied),
		ratelimiter.WithLogger(log),
	)

	opts := billing.RouterOptions{
		Intakes:  billing.NewIntakeService(e.service, errHandler),
		Checkout: billing.NewCheckoutService(e.checkout, errHandler, billing.WithCheckoutMiddleware(checkoutLimit)),
		Webhooks: billing.NewWebhookService(e.dispatcher, errHandler),
	}
	if e.simulator != nil {
		opts.Simulator = billing.NewSimulatorService(e.simulator, e.dispatcher, errHandler)
	}
	r.Mount("/", billing.Router(opts))

	return r
}
