package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the billing module.
// Each service is optional and will only be mounted if provided.
type RouterOptions struct {
	Intakes  Mountable
	Checkout Mountable
	Webhooks Mountable

	// Simulator exposes the hosted-page stand-in of the simulated
	// processor. Mount it only when the simulator is the active provider.
	Simulator Mountable
}

// Router creates the billing module router.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", billing.Router(billing.RouterOptions{
//	    Intakes:  billing.NewIntakeService(svc, errHandler),
//	    Checkout: billing.NewCheckoutService(initiator, errHandler),
//	    Webhooks: billing.NewWebhookService(dispatcher, errHandler),
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Intakes != nil {
		r.Mount("/intakes", opts.Intakes.Handle())
	}
	if opts.Checkout != nil {
		r.Mount("/checkout", opts.Checkout.Handle())
	}
	if opts.Webhooks != nil {
		r.Mount("/webhooks", opts.Webhooks.Handle())
	}
	if opts.Simulator != nil {
		r.Mount("/simulator", opts.Simulator.Handle())
	}

	return r
}
