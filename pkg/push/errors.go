package push

import (
	"errors"
	"fmt"
)

// ErrTokenInvalid marks a provider-confirmed dead registration. The
// dispatcher reacts by purging the device; every other failure leaves
// the registry untouched.
var ErrTokenInvalid = errors.New("device token is no longer valid")

// ErrTokenOwned is returned by DeviceRegistry.Save when a token is
// already registered to a different user. Ownership is never
// transferred silently.
var ErrTokenOwned = errors.New("token already registered for another user")

// TransientError is a delivery failure that does not condemn the token:
// network trouble, provider 5xx, auth hiccups. Logged, never acted on.
type TransientError struct {
	StatusCode int
	Reason     string
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("error sending push notification: %s", e.Reason)
	}
	return fmt.Sprintf("error sending push notification, response is %d - %s", e.StatusCode, e.Reason)
}
