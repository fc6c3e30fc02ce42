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

// Intakes is the part of intake.Service the HTTP layer needs.
type Intakes interface {
	Create(ctx context.Context, input intake.CreateInput) (*intake.Intake, error)
	Get(ctx context.Context, id uuid.UUID) (*intake.Intake, error)
	StartBuild(ctx context.Context, id uuid.UUID) (*intake.Intake, error)
}

type IntakeService struct {
	intakes      Intakes
	validate     *validator.Validate
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewIntakeService(intakes Intakes, errorHandler handler.ErrorHandler[handler.Context]) *IntakeService {
	if intakes == nil {
		panic("billing: intake service requires intakes")
	}
	return &IntakeService{
		intakes:      intakes,
		validate:     handler.NewValidator(),
		errorHandler: errorHandler,
	}
}

func (s *IntakeService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/", handler.Wrap(s.create,
		handler.WithBinder[handler.Context, CreateIntakeRequest](binder.BindJSON()),
		handler.WithDecorators(handler.Validate[handler.Context, CreateIntakeRequest](s.validate)),
		handler.WithErrorHandler[handler.Context, CreateIntakeRequest](s.errorHandler),
	))

	r.Get("/{id}/status", handler.Wrap(s.status,
		handler.WithBinder[handler.Context, IntakeIDRequest](binder.Path(chi.URLParam)),
		handler.WithDecorators(handler.Validate[handler.Context, IntakeIDRequest](s.validate)),
		handler.WithErrorHandler[handler.Context, IntakeIDRequest](s.errorHandler),
	))

	r.Post("/{id}/build", handler.Wrap(s.startBuild,
		handler.WithBinder[handler.Context, IntakeIDRequest](binder.Path(chi.URLParam)),
		handler.WithDecorators(handler.Validate[handler.Context, IntakeIDRequest](s.validate)),
		handler.WithErrorHandler[handler.Context, IntakeIDRequest](s.errorHandler),
	))

	return r
}

type CreateIntakeRequest struct {
	Plan     string `json:"plan" validate:"required,max=32"`
	Currency string `json:"currency" validate:"required,alpha,len=3"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Name     string `json:"name" validate:"max=200"`
}

type IntakeIDRequest struct {
	ID string `path:"id" json:"id" validate:"required,uuid"`
}

// IntakeStatus is what the UI polls while waiting for activation.
type IntakeStatus struct {
	ID               string     `json:"id"`
	Plan             string     `json:"plan"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	DepositPaid      bool       `json:"depositPaid"`
	TrialEnd         *time.Time `json:"trialEnd,omitempty"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

func newIntakeStatus(in *intake.Intake) IntakeStatus {
	return IntakeStatus{
		ID:               in.ID.String(),
		Plan:             string(in.Plan),
		Currency:         in.Currency,
		Status:           string(in.Status),
		DepositPaid:      in.DepositPaid,
		TrialEnd:         in.TrialEnd,
		CurrentPeriodEnd: in.CurrentPeriodEnd,
	}
}

func (s *IntakeService) create(ctx handler.Context, req CreateIntakeRequest) handler.Response {
	in, err := s.intakes.Create(ctx, intake.CreateInput{
		Plan:     req.Plan,
		Currency: req.Currency,
		Email:    req.Email,
		Name:     req.Name,
	})
	if err != nil {
		return handler.Fail(httpError(err))
	}
	return handler.JSON(newIntakeStatus(in), handler.WithJSONStatus(http.StatusCreated))
}

func (s *IntakeService) status(ctx handler.Context, req IntakeIDRequest) handler.Response {
	in, err := s.intakes.Get(ctx, uuid.MustParse(req.ID))
	if err != nil {
		return handler.Fail(httpError(err))
	}
	return handler.JSON(newIntakeStatus(in))
}

func (s *IntakeService) startBuild(ctx handler.Context, req IntakeIDRequest) handler.Response {
	in, err := s.intakes.StartBuild(ctx, uuid.MustParse(req.ID))
	if err != nil {
		return handler.Fail(httpError(err))
	}
	return handler.JSON(newIntakeStatus(in))
}
