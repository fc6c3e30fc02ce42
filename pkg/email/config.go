package email

// Config holds email service configuration.
// Without Postmark tokens the service writes messages to DevDir instead of
// sending them.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"billing@localhost.test"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@localhost.test"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
	// DashboardURL is linked from the activation email. "{intakeId}" is
	// replaced with the intake id.
	DashboardURL string `env:"EMAIL_DASHBOARD_URL" envDefault:"http://localhost:8080/intakes/{intakeId}/status"`
}

// PostmarkEnabled reports whether both Postmark tokens are configured.
func (c Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}
