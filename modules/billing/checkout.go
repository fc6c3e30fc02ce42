package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/intakebilling/binder"
	"github.com/dmitrymomot/intakebilling/handler"
	"github.com/dmitrymomot/intakebilling/svc/intake"
)

// CheckoutStarter opens deposit checkout sessions.
type CheckoutStarter interface {
	Start(ctx context.Context, input intake.StartCheckoutInput) (*intake.CheckoutResult, error)
}

type CheckoutService struct {
	checkout     CheckoutStarter
	validate     *validator.Validate
	errorHandler handler.ErrorHandler[handler.Context]
	middlewares  []func(http.Handler) http.Handler
}

// CheckoutOption configures a CheckoutService.
type CheckoutOption func(*CheckoutService)

// WithCheckoutMiddleware adds middleware in front of the start route,
// typically a rate limiter.
func WithCheckoutMiddleware(mw ...func(http.Handler) http.Handler) CheckoutOption {
	return func(s *CheckoutService) {
		s.middlewares = append(s.middlewares, mw...)
	}
}

func NewCheckoutService(checkout CheckoutStarter, errorHandler handler.ErrorHandler[handler.Context], opts ...CheckoutOption) *CheckoutService {
	if checkout == nil {
		panic("billing: checkout service requires a checkout starter")
	}
	s := &CheckoutService{
		checkout:     checkout,
		validate:     handler.NewValidator(),
		errorHandler: errorHandler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CheckoutService) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.middlewares...).Post("/start", handler.Wrap(s.start,
		handler.WithBinder[handler.Context, StartCheckoutRequest](binder.BindJSON()),
		handler.WithDecorators(handler.Validate[handler.Context, StartCheckoutRequest](s.validate)),
		handler.WithErrorHandler[handler.Context, StartCheckoutRequest](s.errorHandler),
	))

	return r
}

type StartCheckoutRequest struct {
	IntakeID string `json:"intakeId" validate:"required,uuid"`
	Plan     string `json:"plan" validate:"required,max=32"`
	Currency string `json:"currency" validate:"required,alpha,len=3"`
}

type StartCheckoutResponse struct {
	CheckoutURL string    `json:"checkoutUrl"`
	SessionID   string    `json:"sessionId"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *CheckoutService) start(ctx handler.Context, req StartCheckoutRequest) handler.Response {
	plan, err := intake.ParsePlan(req.Plan)
	if err != nil {
		return handler.Fail(httpError(err))
	}

	res, err := s.checkout.Start(ctx, intake.StartCheckoutInput{
		IntakeID: uuid.MustParse(req.IntakeID),
		Plan:     plan,
		Currency: req.Currency,
	})
	if err != nil {
		return handler.Fail(httpError(err))
	}

	return handler.JSON(StartCheckoutResponse{
		CheckoutURL: res.CheckoutURL,
		SessionID:   res.SessionID,
		ExpiresAt:   res.ExpiresAt,
	})
}
