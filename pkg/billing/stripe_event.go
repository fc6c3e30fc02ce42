package billing

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v74"
)

// Stripe event types the engine reacts to.
const (
	stripeCheckoutCompleted          = "checkout.session.completed"
	stripeCheckoutAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	stripeInvoicePaymentSucceeded    = "invoice.payment_succeeded"
	stripeInvoicePaymentFailed       = "invoice.payment_failed"
	stripeCustomerSubscriptionDelete = "customer.subscription.deleted"
)

func mapStripeEventType(t string) EventType {
	switch t {
	case stripeCheckoutCompleted, stripeCheckoutAsyncPaymentOK:
		return EventDepositCompleted
	case stripeInvoicePaymentSucceeded:
		return EventPaymentSucceeded
	case stripeInvoicePaymentFailed:
		return EventPaymentFailed
	case stripeCustomerSubscriptionDelete:
		return EventSubscriptionEnded
	default:
		return EventUnhandled
	}
}

func normalizeStripeEvent(evt stripe.Event) (*Event, error) {
	out := &Event{
		ID:           evt.ID,
		ProviderType: string(evt.Type),
		Type:         mapStripeEventType(string(evt.Type)),
	}
	if evt.Created > 0 {
		out.CreatedAt = time.Unix(evt.Created, 0).UTC()
	}
	if out.ID == "" {
		return nil, errors.Join(ErrInvalidPayload, errors.New("event id is missing"))
	}
	if out.Type == EventUnhandled {
		return out, nil
	}
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, errors.Join(ErrInvalidPayload, errors.New("event data is missing"))
	}

	switch out.Type {
	case EventDepositCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.SessionID = s.ID
		out.PaymentStatus = string(s.PaymentStatus)
		out.Metadata = s.Metadata
		if s.Customer != nil {
			out.CustomerID = s.Customer.ID
		}

	case EventPaymentSucceeded, EventPaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		// The invoice opening a trial carries no payment.
		if out.Type == EventPaymentSucceeded &&
			inv.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate && inv.AmountPaid == 0 {
			out.Type = EventUnhandled
		}
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			out.CustomerID = inv.Customer.ID
		}
		out.Metadata, out.PeriodEnd = invoiceSubscriptionLine(&inv)

	case EventSubscriptionEnded:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrInvalidPayload, err)
		}
		out.SubscriptionID = sub.ID
		out.Metadata = sub.Metadata
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		out.PeriodEnd = unixTime(sub.CurrentPeriodEnd)
	}

	return out, nil
}

// invoiceSubscriptionLine returns the subscription metadata and billing period
// end from the invoice's subscription line item.
func invoiceSubscriptionLine(inv *stripe.Invoice) (map[string]string, time.Time) {
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line == nil || line.Type != stripe.InvoiceLineItemTypeSubscription {
				continue
			}
			var end time.Time
			if line.Period != nil {
				end = unixTime(line.Period.End)
			}
			return line.Metadata, end
		}
	}
	return nil, unixTime(inv.PeriodEnd)
}
