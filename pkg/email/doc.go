// Package email sends transactional emails through Postmark, or writes them to
// disk when no Postmark tokens are configured.
//
// NewSender picks the implementation from Config:
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//	    return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//	    SendTo:   "owner@example.com",
//	    Subject:  "Your subscription is active",
//	    BodyHTML: html,
//	    Tag:      "subscription-activated",
//	})
//
// Every sender validates SendEmailParams first and reports ErrInvalidParams.
// Provider failures wrap ErrFailedToSendEmail.
//
// The templates subpackage holds the templ components rendered into BodyHTML.
package email
