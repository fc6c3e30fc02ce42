package intake

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/intakebilling/pkg/logger"
)

// Option configures the engine components.
type Option func(*options)

type options struct {
	log      *slog.Logger
	now      func() time.Time
	notifier Notifier
	legacy   *LegacyProjector
}

func newOptions(opts []Option) *options {
	o := &options{
		log: logger.Discard(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithNotifier sets the collaborator told about successful activations.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLegacyProjector routes events of the previous billing model to p.
func WithLegacyProjector(p *LegacyProjector) Option {
	return func(o *options) {
		o.legacy = p
	}
}
