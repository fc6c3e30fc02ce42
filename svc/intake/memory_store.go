package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept in process memory. Intakes are deep-copied on
// the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	intakes map[uuid.UUID]*Intake
	bySub   map[string]uuid.UUID
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intakes: make(map[uuid.UUID]*Intake),
		bySub:   make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, in *Intake) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.intakes[in.ID]; ok {
		return fmt.Errorf("%w: intake %s already exists", ErrConflict, in.ID)
	}
	s.intakes[in.ID] = clone(in)
	if in.HasSubscription() {
		s.bySub[*in.ExternalSubscriptionID] = in.ID
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Intake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.intakes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(in), nil
}

func (s *MemoryStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Intake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySub[subscriptionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.intakes[id]), nil
}

func (s *MemoryStore) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intakes[id]
	if !ok {
		return "", ErrNotFound
	}
	if in.HasCustomer() {
		return *in.ExternalCustomerID, nil
	}
	in.ExternalCustomerID = ptr(customerID)
	in.UpdatedAt = s.now().UTC()
	return customerID, nil
}

func (s *MemoryStore) Activate(ctx context.Context, id uuid.UUID, a Activation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intakes[id]
	if !ok {
		return ErrNotFound
	}
	if in.HasSubscription() {
		return fmt.Errorf("%w: intake %s already has subscription %s", ErrConflict, id, *in.ExternalSubscriptionID)
	}

	in.ExternalSubscriptionID = ptr(a.SubscriptionID)
	if a.Plan != "" {
		in.Plan = a.Plan
	}
	if a.Currency != "" {
		in.Currency = a.Currency
	}
	if a.CustomerID != "" && !in.HasCustomer() {
		in.ExternalCustomerID = ptr(a.CustomerID)
	}
	in.DepositSessionID = ptr(a.DepositSessionID)
	in.DepositPaid = true
	in.TrialStart = ptr(a.TrialStart)
	in.TrialEnd = ptr(a.TrialEnd)
	if !a.CurrentPeriodEnd.IsZero() {
		in.CurrentPeriodEnd = ptr(a.CurrentPeriodEnd)
	}
	in.Status = StatusConfirmed
	in.UpdatedAt = a.ActivatedAt
	s.bySub[a.SubscriptionID] = id
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, periodEnd *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intakes[id]
	if !ok {
		return ErrNotFound
	}
	if in.Status != from {
		return fmt.Errorf("%w: intake %s is %s, expected %s", ErrConflict, id, in.Status, from)
	}
	in.Status = to
	if periodEnd != nil {
		in.CurrentPeriodEnd = cloneTime(periodEnd)
	}
	in.UpdatedAt = s.now().UTC()
	return nil
}

// MemoryLedger is an EventLedger kept in process memory.
type MemoryLedger struct {
	mu     sync.Mutex
	events map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{events: make(map[string]string)}
}

func (l *MemoryLedger) Claim(ctx context.Context, eventID, eventType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.events[eventID]; ok {
		return false, nil
	}
	l.events[eventID] = eventType
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, eventID)
	return nil
}

// Len returns the number of recorded events.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// MemoryLegacyStore is a LegacyStore kept in process memory.
type MemoryLegacyStore struct {
	mu      sync.RWMutex
	records map[string]LegacyRecord
	now     func() time.Time
}

// NewMemoryLegacyStore returns a store seeded with copies of records.
func NewMemoryLegacyStore(records ...LegacyRecord) *MemoryLegacyStore {
	s := &MemoryLegacyStore{
		records: make(map[string]LegacyRecord, len(records)),
		now:     time.Now,
	}
	for _, r := range records {
		s.records[r.ProjectID] = r
	}
	return s
}

func (s *MemoryLegacyStore) Get(ctx context.Context, projectID string) (*LegacyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryLegacyStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*LegacyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.SubscriptionID != "" && r.SubscriptionID == subscriptionID {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryLegacyStore) UpdateState(ctx context.Context, projectID string, from, to LegacyState, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[projectID]
	if !ok {
		return ErrNotFound
	}
	if r.State != from {
		return fmt.Errorf("%w: project %s is %s, expected %s", ErrConflict, projectID, r.State, from)
	}
	r.State = to
	if r.SubscriptionID == "" && subscriptionID != "" {
		r.SubscriptionID = subscriptionID
	}
	r.UpdatedAt = s.now().UTC()
	s.records[projectID] = r
	return nil
}
