package httpserver

import (
	"fmt"
	"time"
)

// Config is the environment form of the server options.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Validate implements config.Validator. Zero durations are allowed and keep
// the server defaults.
func (c Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"HTTP_READ_TIMEOUT":     c.ReadTimeout,
		"HTTP_WRITE_TIMEOUT":    c.WriteTimeout,
		"HTTP_IDLE_TIMEOUT":     c.IdleTimeout,
		"HTTP_SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s: negative duration %v", name, d)
		}
	}
	return nil
}

// NewFromConfig applies the non-zero fields of cfg, then opts.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	var fromCfg []Option
	set := func(ok bool, opt func() Option) {
		if ok {
			fromCfg = append(fromCfg, opt())
		}
	}
	set(cfg.Addr != "", func() Option { return WithAddr(cfg.Addr) })
	set(cfg.ReadTimeout > 0, func() Option { return WithReadTimeout(cfg.ReadTimeout) })
	set(cfg.WriteTimeout > 0, func() Option { return WithWriteTimeout(cfg.WriteTimeout) })
	set(cfg.IdleTimeout > 0, func() Option { return WithIdleTimeout(cfg.IdleTimeout) })
	set(cfg.ShutdownTimeout > 0, func() Option { return WithShutdownTimeout(cfg.ShutdownTimeout) })

	return New(append(fromCfg, opts...)...)
}
