// Package handler provides type-safe JSON HTTP handlers.
//
// A HandlerFunc receives a Context and a request struct that binders filled
// from the *http.Request, and returns a Response that renders itself:
//
//	type StartCheckoutRequest struct {
//		IntakeID string `json:"intakeId" validate:"required,uuid"`
//		Plan     string `json:"plan" validate:"required,oneof=starter growth scale"`
//		Currency string `json:"currency" validate:"required,iso4217"`
//	}
//
//	func start(ctx handler.Context, req StartCheckoutRequest) handler.Response {
//		res, err := checkout.Start(ctx, ...)
//		if err != nil {
//			return handler.JSONError(toHTTPError(err))
//		}
//		return handler.JSON(res)
//	}
//
//	r.Post("/checkout/start", handler.Wrap(start,
//		handler.WithBinder[handler.Context, StartCheckoutRequest](binder.BindJSON()),
//		handler.WithDecorators(handler.Validate[handler.Context, StartCheckoutRequest](nil)),
//		handler.WithErrorHandler[handler.Context, StartCheckoutRequest](handler.NewErrorHandler(log)),
//	))
//
// # Responses
//
//	handler.JSON(data)                            // 200 with {"data": ...}
//	handler.JSON(data, handler.WithJSONStatus(201))
//	handler.JSONError(err)                        // {"error": {...}} with a mapped status
//	handler.Fail(err)                             // passes err to the route's ErrorHandler
//
// # Errors
//
// HTTPError carries a status and a stable key. ValidationError carries
// per-field messages and renders as 400. Binding failures are classified by
// ClassifyError; anything else is a 500 whose message is not exposed.
package handler
