package intake

import "context"

// Notifier is told about intakes that were just activated. It runs in the
// background and its failures never affect activation.
type Notifier interface {
	NotifyActivated(ctx context.Context, in Intake) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, in Intake) error

func (f NotifierFunc) NotifyActivated(ctx context.Context, in Intake) error {
	return f(ctx, in)
}
