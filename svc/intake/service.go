package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/intakebilling/pkg/logger"
)

// CreateInput describes a new intake submission.
type CreateInput struct {
	Plan     string
	Currency string
	Email    string
	Name     string
}

// Service owns intake records outside the webhook flow: creation, lookup
// and operator transitions.
type Service struct {
	store     Store
	projector *Projector
	log       *slog.Logger
	now       func() time.Time
}

func NewService(store Store, projector *Projector, opts ...Option) *Service {
	if store == nil || projector == nil {
		panic("intake: service requires store and projector")
	}
	o := newOptions(opts)
	return &Service{
		store:     store,
		projector: projector,
		log:       o.log.With(logger.Component("intake_service")),
		now:       o.now,
	}
}

// Create stores a new pending intake.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Intake, error) {
	plan, err := ParsePlan(input.Plan)
	if err != nil {
		return nil, err
	}
	currency, err := NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", ErrValidation, email)
		}
	}

	now := s.now().UTC()
	in := &Intake{
		ID:        uuid.New(),
		Plan:      plan,
		Currency:  currency,
		Email:     email,
		Name:      strings.TrimSpace(input.Name),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, in); err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	s.log.InfoContext(ctx, "intake created",
		logger.IntakeID(in.ID),
		slog.String("plan", string(plan)),
		slog.String("currency", currency),
	)
	return in, nil
}

// Get returns the intake with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Intake, error) {
	in, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: intake %s", ErrNotFound, id)
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	return in, nil
}

// StartBuild moves a confirmed intake to building.
func (s *Service) StartBuild(ctx context.Context, id uuid.UUID) (*Intake, error) {
	return s.projector.StartBuild(ctx, id)
}
