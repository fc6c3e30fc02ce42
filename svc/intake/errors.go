package intake

import "errors"

var (
	// ErrConfiguration means a price mapping is missing. Detected before any
	// external resource is created.
	ErrConfiguration = errors.New("intake: missing billing configuration")
	// ErrValidation means the input is malformed. No state is touched.
	ErrValidation = errors.New("intake: invalid input")
	// ErrNotFound means the intake does not exist.
	ErrNotFound = errors.New("intake: not found")
	// ErrConflict means the operation collides with the record's current
	// state, such as starting checkout for an intake that already has a
	// subscription.
	ErrConflict = errors.New("intake: conflicting state")
	// ErrAuthentication means a webhook signature did not verify.
	ErrAuthentication = errors.New("intake: webhook authentication failed")
	// ErrTransientExternal means the payment processor call failed.
	ErrTransientExternal = errors.New("intake: payment processor request failed")
	// ErrPersistence means a datastore operation failed. After a successful
	// processor call this leaves an external resource without a local record.
	ErrPersistence = errors.New("intake: persistence failure")
)
