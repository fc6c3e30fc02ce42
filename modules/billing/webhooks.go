package billing

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/intakebilling/binder"
	"github.com/dmitrymomot/intakebilling/handler"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

// WebhookDispatcher verifies and handles one processor delivery.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, payload []byte, signature string) (intake.Ack, error)
}

// maxWebhookBody caps processor payloads. Stripe events are well below it.
const maxWebhookBody = 512 << 10

type WebhookService struct {
	dispatcher   WebhookDispatcher
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewWebhookService(dispatcher WebhookDispatcher, errorHandler handler.ErrorHandler[handler.Context]) *WebhookService {
	if dispatcher == nil {
		panic("billing: webhook service requires a dispatcher")
	}
	return &WebhookService{dispatcher: dispatcher, errorHandler: errorHandler}
}

func (s *WebhookService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/payment", handler.Wrap(s.payment,
		handler.WithBinders[handler.Context, PaymentWebhookRequest](
			binder.RawBody(maxWebhookBody),
			binder.Header(),
		),
		handler.WithErrorHandler[handler.Context, PaymentWebhookRequest](s.errorHandler),
	))

	return r
}

// PaymentWebhookRequest carries the exact bytes the signature covers.
type PaymentWebhookRequest struct {
	Payload   []byte `body:"raw"`
	Signature string `header:"Stripe-Signature"`
}

type WebhookAck struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Outcome   string `json:"outcome"`
}

// payment acknowledges every verified delivery with 200, including ones
// whose handler failed. Only bad signatures, unparseable payloads and a
// broken event ledger are reported as errors.
func (s *WebhookService) payment(ctx handler.Context, req PaymentWebhookRequest) handler.Response {
	ack, err := s.dispatcher.Dispatch(ctx, req.Payload, req.Signature)
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
