package email_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/intakebilling/pkg/email"
)

func postmarkConfig() email.Config {
	return email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "billing@example.com",
		SupportEmail:         "support@example.com",
	}
}

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*email.Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*email.Config) {}},
		{name: "server token", mutate: func(c *email.Config) { c.PostmarkServerToken = "" }, errMsg: "PostmarkServerToken is required"},
		{name: "account token", mutate: func(c *email.Config) { c.PostmarkAccountToken = "" }, errMsg: "PostmarkAccountToken is required"},
		{name: "sender missing", mutate: func(c *email.Config) { c.SenderEmail = "" }, errMsg: "SenderEmail is required"},
		{name: "sender invalid", mutate: func(c *email.Config) { c.SenderEmail = "billing" }, errMsg: "SenderEmail must be a valid email address"},
		{name: "support missing", mutate: func(c *email.Config) { c.SupportEmail = "" }, errMsg: "SupportEmail is required"},
		{name: "support invalid", mutate: func(c *email.Config) { c.SupportEmail = "support@" }, errMsg: "SupportEmail must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := postmarkConfig()
			tt.mutate(&cfg)
			client, err := email.NewPostmarkClient(cfg)
			if tt.errMsg == "" {
				require.NoError(t, err)
				assert.NotNil(t, client)
				return
			}
			assert.Nil(t, client)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMustNewPostmarkClient(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() { email.MustNewPostmarkClient(postmarkConfig()) })
	assert.Panics(t, func() { email.MustNewPostmarkClient(email.Config{PostmarkServerToken: "x"}) })
}

func TestPostmarkClient_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	client := email.MustNewPostmarkClient(postmarkConfig())
	err := client.SendEmail(context.Background(), email.SendEmailParams{SendTo: "owner@example.com"})
	assert.ErrorIs(t, err, email.ErrInvalidParams)
}

func TestConfig_PostmarkEnabled(t *testing.T) {
	t.Parallel()

	assert.True(t, postmarkConfig().PostmarkEnabled())
	assert.False(t, email.Config{PostmarkServerToken: "x"}.PostmarkEnabled())
	assert.False(t, email.Config{}.PostmarkEnabled())
}
