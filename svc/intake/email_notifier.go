package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/intakebilling/pkg/email"
	"github.com/dmitrymomot/intakebilling/pkg/email/templates"
)

// ActivationEmailTag marks activation emails for provider analytics.
const ActivationEmailTag = "subscription-activated"

// EmailNotifier sends the activation email to the intake's billing contact.
type EmailNotifier struct {
	sender       email.EmailSender
	dashboardURL string
}

// NewEmailNotifier returns a Notifier backed by sender. "{intakeId}" in
// dashboardURL is replaced with the intake id.
func NewEmailNotifier(sender email.EmailSender, dashboardURL string) *EmailNotifier {
	if sender == nil {
		panic("intake: email notifier requires a sender")
	}
	return &EmailNotifier{sender: sender, dashboardURL: dashboardURL}
}

// NotifyActivated implements Notifier. Intakes without an email address
// are reported with email.ErrNoRecipient.
func (n *EmailNotifier) NotifyActivated(ctx context.Context, in Intake) error {
	if strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: intake %s", email.ErrNoRecipient, in.ID)
	}

	data := templates.ActivationData{
		ProjectName:  in.Name,
		Plan:         string(in.Plan),
		Currency:     in.Currency,
		DashboardURL: strings.ReplaceAll(n.dashboardURL, "{intakeId}", in.ID.String()),
	}
	if in.TrialEnd != nil {
		data.TrialEnd = *in.TrialEnd
	}

	body, err := templates.Render(ctx, templates.Activated(data))
	if err != nil {
		return errors.Join(email.ErrFailedToSendEmail, err)
	}

	subject := "Your subscription is active"
	if in.Name != "" {
		subject = fmt.Sprintf("%s: subscription active", in.Name)
	}
	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   in.Email,
		Subject:  subject,
		BodyHTML: body,
		Tag:      ActivationEmailTag,
	})
}
