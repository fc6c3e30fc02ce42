package templates

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// ActivationData is the content of the "subscription activated" email.
type ActivationData struct {
	ProjectName  string
	Plan         string
	Currency     string
	TrialEnd     time.Time
	DashboardURL string
}

// Activated renders the email sent once the deposit is confirmed and the
// trialing subscription exists. Every dynamic value is escaped and the
// dashboard link is dropped unless it is an http(s) URL.
func Activated(d ActivationData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := d.ProjectName
		if strings.TrimSpace(name) == "" {
			name = "your project"
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html><body style="font-family:sans-serif;color:#1f2933">`)
		fmt.Fprintf(&b, `<h1>Deposit received for %s</h1>`, templ.EscapeString(name))
		fmt.Fprintf(&b, `<p>Your <strong>%s</strong> subscription is active and billed in %s.</p>`,
			templ.EscapeString(d.Plan), templ.EscapeString(strings.ToUpper(d.Currency)))
		if !d.TrialEnd.IsZero() {
			fmt.Fprintf(&b, `<p>No charge until the trial ends on %s.</p>`,
				templ.EscapeString(d.TrialEnd.UTC().Format("January 2, 2006")))
		}
		if link := string(templ.URL(d.DashboardURL)); d.DashboardURL != "" && link == d.DashboardURL {
			fmt.Fprintf(&b, `<p><a href="%s">Track your project</a></p>`, templ.EscapeString(link))
		}
		b.WriteString(`<p>Reply to this email if anything looks wrong.</p></body></html>`)

		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}
