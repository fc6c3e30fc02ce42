package main

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/dmitrymomot/intakebilling/pkg/environment"
)

// appConfig holds settings that belong to the binary rather than to a package.
type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"intakebilling"`
	// PublicURL is the externally reachable base URL, used for the
	// simulated checkout page.
	PublicURL string `env:"APP_PUBLIC_URL" envDefault:"http://localhost:8080"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	// TrustedIPHeaders are consulted, in order, for the client address.
	// Leave empty unless a proxy sets them.
	TrustedIPHeaders []string `env:"TRUSTED_IP_HEADERS" envSeparator:","`

	ReadinessTimeout       time.Duration `env:"READINESS_TIMEOUT" envDefault:"3s"`
	SimulatorWebhookSecret string        `env:"SIMULATOR_WEBHOOK_SECRET" envDefault:"whsec_simulator_local"`
}

// Validate implements config.Validator.
func (c appConfig) Validate() error {
	env := environment.Environment(c.Env)
	if !slices.Contains([]environment.Environment{environment.Development, environment.Staging, environment.Production}, env) {
		return fmt.Errorf("APP_ENV: unknown environment %q", c.Env)
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_PUBLIC_URL: absolute URL required, got %q", c.PublicURL)
	}
	if env.IsProduction() && slices.Contains(c.CORSAllowedOrigins, "*") {
		return errors.New("CORS_ALLOWED_ORIGINS: wildcard is not allowed in production")
	}
	return nil
}

func (c appConfig) environment() environment.Environment {
	return environment.Environment(c.Env)
}
