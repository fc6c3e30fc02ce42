package intake

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the activation engine settings.
type Config struct {
	// TrialDays is the trial length of every created subscription.
	TrialDays int `env:"INTAKE_TRIAL_DAYS" envDefault:"30"`
	// PriceMatrixPath points to the YAML price matrix.
	PriceMatrixPath string `env:"INTAKE_PRICE_MATRIX_PATH" envDefault:"config/prices.yaml"`
	// Redirect targets after the hosted deposit page. "{intakeId}" is
	// replaced with the intake id.
	CheckoutSuccessURL string `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:8080/checkout/success?intake={intakeId}"`
	CheckoutCancelURL  string `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:8080/checkout/cancel?intake={intakeId}"`
	// SimulateProcessor selects the in-memory payment processor. Read once
	// at start-up.
	SimulateProcessor bool `env:"SIMULATE_PROCESSOR" envDefault:"false"`
	// NotifyTimeout bounds the detached activation email send.
	NotifyTimeout time.Duration `env:"INTAKE_NOTIFY_TIMEOUT" envDefault:"30s"`
}

// DefaultTrialDays is used when Config.TrialDays is not positive.
const DefaultTrialDays = 30

func (c Config) trialDays() int {
	if c.TrialDays <= 0 {
		return DefaultTrialDays
	}
	return c.TrialDays
}

func (c Config) redirectURLs(id uuid.UUID) (success, cancel string) {
	r := strings.NewReplacer("{intakeId}", id.String())
	return r.Replace(c.CheckoutSuccessURL), r.Replace(c.CheckoutCancelURL)
}
