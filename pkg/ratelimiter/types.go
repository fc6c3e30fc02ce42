package ratelimiter

import (
	"fmt"
	"time"
)

// Result of a single limiter call.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // negative when denied
	ResetAt   time.Time // next refill
}

func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is zero for allowed requests and never negative.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(time.Until(r.ResetAt), 0)
}

// Config of a token bucket. The defaults describe the checkout limiter: a
// burst of 10 starts, then one more every 6 seconds.
type Config struct {
	Capacity       int           `env:"RATELIMIT_CAPACITY" envDefault:"10"`
	RefillRate     int           `env:"RATELIMIT_REFILL_RATE" envDefault:"1"`
	RefillInterval time.Duration `env:"RATELIMIT_REFILL_INTERVAL" envDefault:"6s"`
}

// Validate implements config.Validator.
func (c Config) Validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	case c.RefillRate <= 0:
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	case c.RefillInterval <= 0:
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// maxIntervals caps the refill count so long idle periods cannot overflow.
func (c Config) maxIntervals() int64 {
	return int64(c.Capacity/c.RefillRate + 1)
}
