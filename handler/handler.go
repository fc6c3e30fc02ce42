package handler

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/intakebilling/binder"
)

// HandlerFunc handles a bound request of type R within context C.
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself to the client. A non-nil error from Render is
// passed to the route's ErrorHandler.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind fills v from r. Binders return binder.ErrBinderNotApplicable when
// the request carries nothing for them.
type Bind func(r *http.Request, v any) error

// ErrorHandler reports and renders errors from binding, handlers and rendering.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator wraps a HandlerFunc. The first decorator passed to
// WithDecorators is the outermost. See Validate.
type Decorator[C Context, R any] func(HandlerFunc[C, R]) HandlerFunc[C, R]

// WrapOption configures Wrap.
type WrapOption[C Context, R any] func(*route[C, R])

type route[C Context, R any] struct {
	binders    []Bind
	onError    ErrorHandler[C]
	newContext func(http.ResponseWriter, *http.Request) C
	decorators []Decorator[C, R]
}

// WithBinder replaces the binders of the route with b.
func WithBinder[C Context, R any](b Bind) WrapOption[C, R] {
	return func(rt *route[C, R]) {
		if b != nil {
			rt.binders = []Bind{b}
		}
	}
}

// WithBinders appends binders, applied in order. Each binder handles its
// own struct tags, so the webhook route combines the raw body and a header:
//
//	handler.WithBinders[handler.Context, PaymentWebhookRequest](
//		binder.RawBody(maxWebhookBody), // body:"raw"
//		binder.Header(),                // header:"Stripe-Signature"
//	)
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(rt *route[C, R]) {
		rt.binders = append(rt.binders, binders...)
	}
}

func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(rt *route[C, R]) {
		if h != nil {
			rt.onError = h
		}
	}
}

// WithContextFactory builds C for handlers that use a custom context type.
func WithContextFactory[C Context, R any](f func(http.ResponseWriter, *http.Request) C) WrapOption[C, R] {
	return func(rt *route[C, R]) {
		if f != nil {
			rt.newContext = f
		}
	}
}

func WithDecorators[C Context, R any](decorators ...Decorator[C, R]) WrapOption[C, R] {
	return func(rt *route[C, R]) {
		rt.decorators = append(rt.decorators, decorators...)
	}
}

// Wrap adapts h to an http.HandlerFunc. Without WithErrorHandler errors are
// rendered as JSON and not logged.
//
//	r.Post("/checkout/start", handler.Wrap(s.start,
//		handler.WithBinder[handler.Context, StartCheckoutRequest](binder.BindJSON()),
//		handler.WithErrorHandler[handler.Context, StartCheckoutRequest](handler.NewErrorHandler(log)),
//	))
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	rt := &route[C, R]{
		onError:    renderError[C],
		newContext: defaultContext[C],
	}
	for _, opt := range opts {
		opt(rt)
	}

	for i := len(rt.decorators) - 1; i >= 0; i-- {
		h = rt.decorators[i](h)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := rt.newContext(w, r)

		req, err := rt.bind(r)
		if err != nil {
			rt.onError(ctx, err)
			return
		}

		resp := h(ctx, req)
		if resp == nil {
			rt.onError(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			rt.onError(ctx, err)
		}
	}
}

func (rt *route[C, R]) bind(r *http.Request) (R, error) {
	var req R
	for _, b := range rt.binders {
		if err := b(r, &req); err != nil && !errors.Is(err, binder.ErrBinderNotApplicable) {
			return req, err
		}
	}
	return req, nil
}

func renderError[C Context](ctx C, err error) {
	_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
}

// defaultContext panics when C is not satisfied by the built-in Context;
// such routes need WithContextFactory.
func defaultContext[C Context](w http.ResponseWriter, r *http.Request) C {
	c, ok := any(NewContext(w, r)).(C)
	if !ok {
		panic("handler: custom context type requires WithContextFactory")
	}
	return c
}
