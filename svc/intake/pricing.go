package intake

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

// PriceMatrix maps plans and currencies to processor price ids.
//
// File format:
//
//	deposits:
//	  USD: price_deposit_usd
//	recurring:
//	  starter:
//	    USD: price_starter_usd
type PriceMatrix struct {
	Deposits  map[string]string          `yaml:"deposits"`
	Recurring map[Plan]map[string]string `yaml:"recurring"`
}

// PricePair is one provisioned (plan, currency) combination.
type PricePair struct {
	Plan     Plan
	Currency string
}

// Prices is the resolved pair of price ids for a checkout.
type Prices struct {
	RecurringPriceID string
	DepositPriceID   string
}

// LoadPriceMatrix reads and validates a YAML price matrix.
func LoadPriceMatrix(path string) (PriceMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PriceMatrix{}, errors.Join(ErrConfiguration, fmt.Errorf("read price matrix: %w", err))
	}
	return ParsePriceMatrix(data)
}

// ParsePriceMatrix decodes a YAML price matrix, normalizing currency codes
// to upper case and rejecting unknown plans or currencies.
func ParsePriceMatrix(data []byte) (PriceMatrix, error) {
	var raw PriceMatrix
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return PriceMatrix{}, errors.Join(ErrConfiguration, fmt.Errorf("decode price matrix: %w", err))
	}
	return raw.normalize()
}

func (m PriceMatrix) normalize() (PriceMatrix, error) {
	out := PriceMatrix{
		Deposits:  make(map[string]string, len(m.Deposits)),
		Recurring: make(map[Plan]map[string]string, len(m.Recurring)),
	}

	for code, id := range m.Deposits {
		cur, err := NormalizeCurrency(code)
		if err != nil {
			return PriceMatrix{}, errors.Join(ErrConfiguration, err)
		}
		if id == "" {
			return PriceMatrix{}, fmt.Errorf("%w: empty deposit price for %s", ErrConfiguration, cur)
		}
		out.Deposits[cur] = id
	}

	for plan, byCurrency := range m.Recurring {
		if !plan.Valid() {
			return PriceMatrix{}, fmt.Errorf("%w: unknown plan %q in price matrix", ErrConfiguration, plan)
		}
		prices := make(map[string]string, len(byCurrency))
		for code, id := range byCurrency {
			cur, err := NormalizeCurrency(code)
			if err != nil {
				return PriceMatrix{}, errors.Join(ErrConfiguration, err)
			}
			if id == "" {
				return PriceMatrix{}, fmt.Errorf("%w: empty %s price for %s", ErrConfiguration, plan, cur)
			}
			prices[cur] = id
		}
		out.Recurring[plan] = prices
	}

	return out, nil
}

// Pairs lists every (plan, currency) pair for which both a recurring and a
// deposit price exist, sorted by plan then currency.
func (m PriceMatrix) Pairs() []PricePair {
	var pairs []PricePair
	for plan, byCurrency := range m.Recurring {
		for cur := range byCurrency {
			if _, ok := m.Deposits[cur]; ok {
				pairs = append(pairs, PricePair{Plan: plan, Currency: cur})
			}
		}
	}
	slices.SortFunc(pairs, func(a, b PricePair) int {
		if c := slices.Index(Plans, a.Plan) - slices.Index(Plans, b.Plan); c != 0 {
			return c
		}
		return strings.Compare(a.Currency, b.Currency)
	})
	return pairs
}

// PriceIDs lists every price id referenced by the matrix.
func (m PriceMatrix) PriceIDs() []string {
	var ids []string
	for _, id := range m.Deposits {
		ids = append(ids, id)
	}
	for _, byCurrency := range m.Recurring {
		for _, id := range byCurrency {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// NormalizeCurrency validates an ISO 4217 code and returns it upper-cased.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("%w: unknown currency %q", ErrValidation, code)
	}
	return unit.String(), nil
}

// PriceResolver is a pure lookup over an immutable price matrix.
type PriceResolver struct {
	matrix PriceMatrix
}

// NewPriceResolver validates m and returns a resolver over a private copy.
func NewPriceResolver(m PriceMatrix) (*PriceResolver, error) {
	normalized, err := m.normalize()
	if err != nil {
		return nil, err
	}
	return &PriceResolver{matrix: normalized}, nil
}

// Resolve returns the recurring price for (plan, currency) and the
// plan-independent deposit price for currency. Either mapping missing is a
// configuration error.
func (r *PriceResolver) Resolve(plan Plan, currencyCode string) (Prices, error) {
	cur, err := NormalizeCurrency(currencyCode)
	if err != nil {
		return Prices{}, errors.Join(ErrConfiguration, err)
	}

	recurring, ok := r.matrix.Recurring[plan][cur]
	if !ok {
		return Prices{}, fmt.Errorf("%w: no recurring price for plan %q in %s", ErrConfiguration, plan, cur)
	}
	deposit, ok := r.matrix.Deposits[cur]
	if !ok {
		return Prices{}, fmt.Errorf("%w: no deposit price for %s", ErrConfiguration, cur)
	}

	return Prices{RecurringPriceID: recurring, DepositPriceID: deposit}, nil
}

// Supports reports whether checkout can be started for (plan, currency).
func (r *PriceResolver) Supports(plan Plan, currencyCode string) bool {
	_, err := r.Resolve(plan, currencyCode)
	return err == nil
}

// Pairs lists the provisioned (plan, currency) pairs.
func (r *PriceResolver) Pairs() []PricePair {
	return r.matrix.Pairs()
}

// PriceIDs lists every configured price id.
func (r *PriceResolver) PriceIDs() []string {
	return r.matrix.PriceIDs()
}
