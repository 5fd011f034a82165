package notify

import (
	"context"
	"errors"
	"fmt"
)

// Notification is a single message about a seat opening up. Channels
// decide themselves how to render it; the email-to-SMS gateway case
// means bodies have to stay short.
type Notification struct {
	Subject string
	Body    string
}

// DeliveryError reports a failed delivery on one channel. Delivery is
// single-attempt and never fatal to the caller: a missed text is better
// than a dead monitor.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %s", e.Channel, e.Err.Error())
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MultiNotifier fans a notification out to every configured channel.
// Each channel gets its single attempt regardless of the others
// failing.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errlist []error
	for _, notifier := range m {
		err := notifier.Notify(ctx, n)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}
