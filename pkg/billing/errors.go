package billing

import "errors"

var (
	ErrInvalidConfig      = errors.New("billing: invalid provider configuration")
	ErrInvalidSignature   = errors.New("billing: invalid webhook signature")
	ErrInvalidPayload     = errors.New("billing: invalid webhook payload")
	ErrInvalidRequest     = errors.New("billing: invalid request")
	ErrProviderRequest    = errors.New("billing: provider request failed")
	ErrProviderRejected   = errors.New("billing: provider rejected request")
	ErrCustomerNotFound   = errors.New("billing: customer not found")
	ErrUnknownPriceID     = errors.New("billing: unknown price id")
	ErrSimulatorEventType = errors.New("billing: unsupported simulated event type")
)
