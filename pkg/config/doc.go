// Package config loads typed configuration from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for parsing and
// github.com/joho/godotenv for optional .env files. Each config struct is
// parsed once and cached by type, so packages can call Load for their own
// Config without coordinating:
//
//	var dbCfg pg.Config
//	config.MustLoad(&dbCfg)
//
//	var stripeCfg billing.StripeConfig
//	if err := config.Load(&stripeCfg); err != nil {
//		return err
//	}
//
// A config type that implements Validator is checked right after parsing;
// a failure is returned wrapped in ErrInvalidConfig and nothing is cached.
//
// Tests that change the environment between loads call ResetCache.
package config
