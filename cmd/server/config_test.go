package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppConfigValidate(t *testing.T) {
	t.Parallel()

	base := appConfig{
		Env:                "development",
		ServiceName:        "intakebilling",
		PublicURL:          "http://localhost:8080",
		CORSAllowedOrigins: []string{"*"},
		ReadinessTimeout:   time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(*appConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*appConfig) {}},
		{name: "unknown env", mutate: func(c *appConfig) { c.Env = "qa" }, wantErr: "APP_ENV"},
		{name: "relative public url", mutate: func(c *appConfig) { c.PublicURL = "/billing" }, wantErr: "APP_PUBLIC_URL"},
		{
			name: "wildcard origin in production",
			mutate: func(c *appConfig) {
				c.Env = "production"
			},
			wantErr: "CORS_ALLOWED_ORIGINS",
		},
		{
			name: "explicit origin in production",
			mutate: func(c *appConfig) {
				c.Env = "production"
				c.CORSAllowedOrigins = []string{"https://app.example.com"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			cfg.CORSAllowedOrigins = append([]string(nil), base.CORSAllowedOrigins...)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
