package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/intakebilling/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by the Postgres stores.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const intakeColumns = `id, plan, currency, email, name,
	external_customer_id, external_subscription_id, deposit_session_id,
	deposit_paid, trial_start, trial_end, current_period_end,
	status, created_at, updated_at`

// PostgresStore is a Store backed by the intakes table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, in *Intake) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO intakes (`+intakeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		in.ID, string(in.Plan), in.Currency, in.Email, in.Name,
		in.ExternalCustomerID, in.ExternalSubscriptionID, in.DepositSessionID,
		in.DepositPaid, in.TrialStart, in.TrialEnd, in.CurrentPeriodEnd,
		string(in.Status), in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: intake %s already exists", ErrConflict, in.ID)
		}
		return fmt.Errorf("failed to create intake: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Intake, error) {
	row := s.db.QueryRow(ctx, `SELECT `+intakeColumns+` FROM intakes WHERE id = $1`, id)
	return scanIntake(row)
}

func (s *PostgresStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Intake, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+intakeColumns+` FROM intakes WHERE external_subscription_id = $1`, subscriptionID)
	return scanIntake(row)
}

// SetCustomerID only writes a null column; the returned id is whatever the
// row holds afterwards.
func (s *PostgresStore) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error) {
	var stored string
	err := s.db.QueryRow(ctx, `
		UPDATE intakes
		SET external_customer_id = COALESCE(external_customer_id, $2),
		    updated_at = CASE WHEN external_customer_id IS NULL THEN now() ELSE updated_at END
		WHERE id = $1
		RETURNING external_customer_id`,
		id, customerID,
	).Scan(&stored)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to set customer id: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) Activate(ctx context.Context, id uuid.UUID, a Activation) error {
	var periodEnd *time.Time
	if !a.CurrentPeriodEnd.IsZero() {
		periodEnd = &a.CurrentPeriodEnd
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE intakes
		SET external_subscription_id = $2,
		    plan = COALESCE(NULLIF($3, ''), plan),
		    currency = COALESCE(NULLIF($4, ''), currency),
		    external_customer_id = COALESCE(external_customer_id, NULLIF($5, '')),
		    deposit_session_id = $6,
		    deposit_paid = TRUE,
		    trial_start = $7,
		    trial_end = $8,
		    current_period_end = COALESCE($9, current_period_end),
		    status = $10,
		    updated_at = $11
		WHERE id = $1 AND external_subscription_id IS NULL`,
		id, a.SubscriptionID, string(a.Plan), a.Currency, a.CustomerID, a.DepositSessionID,
		a.TrialStart, a.TrialEnd, periodEnd, string(StatusConfirmed), a.ActivatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: subscription %s is recorded on another intake", ErrConflict, a.SubscriptionID)
		}
		return fmt.Errorf("failed to activate intake: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, id, "already has a subscription")
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, periodEnd *time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE intakes
		SET status = $3,
		    current_period_end = COALESCE($4, current_period_end),
		    updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), periodEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update intake status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrConflict(ctx, id, "is no longer "+string(from))
	}
	return nil
}

// missOrConflict tells a missing row from a failed condition after an
// update matched nothing.
func (s *PostgresStore) missOrConflict(ctx context.Context, id uuid.UUID, reason string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM intakes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check intake: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: intake %s %s", ErrConflict, id, reason)
}

func scanIntake(row pgx.Row) (*Intake, error) {
	var (
		in     Intake
		plan   string
		status string
	)
	err := row.Scan(
		&in.ID, &plan, &in.Currency, &in.Email, &in.Name,
		&in.ExternalCustomerID, &in.ExternalSubscriptionID, &in.DepositSessionID,
		&in.DepositPaid, &in.TrialStart, &in.TrialEnd, &in.CurrentPeriodEnd,
		&status, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load intake: %w", err)
	}
	in.Plan = Plan(plan)
	in.Status = Status(status)
	return &in, nil
}

// PostgresLedger is an EventLedger backed by the processed_events table.
type PostgresLedger struct {
	db DB
}

func NewPostgresLedger(db DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Claim(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := l.db.Exec(ctx, `
		INSERT INTO processed_events (event_id, event_type, received_at)
		VALUES ($1, $2, now())
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (l *PostgresLedger) Release(ctx context.Context, eventID string) error {
	if _, err := l.db.Exec(ctx, `DELETE FROM processed_events WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("failed to release event: %w", err)
	}
	return nil
}

// PostgresLegacyStore is a LegacyStore backed by the project_billing table.
type PostgresLegacyStore struct {
	db DB
}

func NewPostgresLegacyStore(db DB) *PostgresLegacyStore {
	return &PostgresLegacyStore{db: db}
}

func (s *PostgresLegacyStore) Get(ctx context.Context, projectID string) (*LegacyRecord, error) {
	return scanLegacy(s.db.QueryRow(ctx, `
		SELECT project_id, external_subscription_id, billing_state, updated_at
		FROM project_billing WHERE project_id = $1`, projectID))
}

func (s *PostgresLegacyStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*LegacyRecord, error) {
	return scanLegacy(s.db.QueryRow(ctx, `
		SELECT project_id, external_subscription_id, billing_state, updated_at
		FROM project_billing WHERE external_subscription_id = $1`, subscriptionID))
}

func (s *PostgresLegacyStore) UpdateState(ctx context.Context, projectID string, from, to LegacyState, subscriptionID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE project_billing
		SET billing_state = $3,
		    external_subscription_id = COALESCE(external_subscription_id, NULLIF($4, '')),
		    updated_at = now()
		WHERE project_id = $1 AND billing_state = $2`,
		projectID, string(from), string(to), subscriptionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project billing state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, projectID); err != nil {
			return err
		}
		return fmt.Errorf("%w: project %s is no longer %s", ErrConflict, projectID, from)
	}
	return nil
}

func scanLegacy(row pgx.Row) (*LegacyRecord, error) {
	var (
		rec   LegacyRecord
		subID *string
		state string
	)
	if err := row.Scan(&rec.ProjectID, &subID, &state, &rec.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load project billing record: %w", err)
	}
	if subID != nil {
		rec.SubscriptionID = *subID
	}
	rec.State = LegacyState(state)
	return &rec, nil
}
