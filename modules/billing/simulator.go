package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/intakebilling/binder"
	"github.com/dmitrymomot/intakebilling/handler"
	payment "github.com/dmitrymomot/intakebilling/pkg/billing"
)

// SimulatedProcessor produces signed events for objects the simulator owns.
type SimulatedProcessor interface {
	CompleteDeposit(sessionID string) ([]byte, string, error)
	PayInvoice(subscriptionID string) ([]byte, string, error)
	FailInvoice(subscriptionID string) ([]byte, string, error)
	EndSubscription(subscriptionID string) ([]byte, string, error)
}

var _ SimulatedProcessor = (*payment.Simulator)(nil)

// SimulatorService stands in for the processor's hosted pages and its
// billing cycle during local runs. Each route builds the signed event the
// real processor would send and feeds it through the webhook dispatcher.
type SimulatorService struct {
	sim          SimulatedProcessor
	dispatcher   WebhookDispatcher
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewSimulatorService(sim SimulatedProcessor, dispatcher WebhookDispatcher, errorHandler handler.ErrorHandler[handler.Context]) *SimulatorService {
	if sim == nil || dispatcher == nil {
		panic("billing: simulator service requires a simulator and a dispatcher")
	}
	return &SimulatorService{sim: sim, dispatcher: dispatcher, errorHandler: errorHandler}
}

func (s *SimulatorService) Handle() http.Handler {
	r := chi.NewRouter()

	// Checkout URLs issued by the simulator point here.
	r.Get("/pay", handler.Wrap(s.pay,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.Route("/subscriptions/{id}", func(r chi.Router) {
		r.Post("/pay", s.subscriptionRoute(s.sim.PayInvoice))
		r.Post("/fail", s.subscriptionRoute(s.sim.FailInvoice))
		r.Post("/end", s.subscriptionRoute(s.sim.EndSubscription))
	})

	return r
}

type SubscriptionIDRequest struct {
	ID string `path:"id"`
}

func (s *SimulatorService) pay(ctx handler.Context, _ struct{}) handler.Response {
	sessionID := ctx.Request().URL.Query().Get("session")
	if sessionID == "" {
		return handler.Fail(errInvalidInput)
	}
	return s.deliver(ctx, func() ([]byte, string, error) {
		return s.sim.CompleteDeposit(sessionID)
	})
}

func (s *SimulatorService) subscriptionRoute(build func(string) ([]byte, string, error)) http.HandlerFunc {
	return handler.Wrap(
		func(ctx handler.Context, req SubscriptionIDRequest) handler.Response {
			return s.deliver(ctx, func() ([]byte, string, error) {
				return build(req.ID)
			})
		},
		handler.WithBinder[handler.Context, SubscriptionIDRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, SubscriptionIDRequest](s.errorHandler),
	)
}

func (s *SimulatorService) deliver(ctx context.Context, build func() ([]byte, string, error)) handler.Response {
	payload, signature, err := build()
	if err != nil {
		return handler.Fail(errors.Join(handler.NewHTTPError(http.StatusNotFound, "simulated_object_not_found"), err))
	}

	ack, err := s.dispatcher.Dispatch(ctx, payload, signature)
	if err != nil {
		return handler.Fail(httpError(err))
	}
	return handler.JSON(WebhookAck{
		Received:  true,
		EventID:   ack.EventID,
		EventType: string(ack.EventType),
		Outcome:   string(ack.Outcome),
	})
}
