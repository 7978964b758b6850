package push

import (
	"context"
	"time"
)

// DeviceRegistry stores and retrieves registered devices. Mutations are
// transactional at single-device granularity.
type DeviceRegistry interface {
	// DevicesForUser returns every device registered by username. An
	// empty slice is a normal answer, not an error.
	DevicesForUser(ctx context.Context, username string) ([]Device, error)

	// DeviceByToken returns the device bound to token, or nil when no
	// such registration exists.
	DeviceByToken(ctx context.Context, token string) (*Device, error)

	// Save creates or updates a registration. Re-registering an existing
	// token for a different owner fails with ErrTokenOwned.
	Save(ctx context.Context, device Device) error

	// Delete removes a registration.
	Delete(ctx context.Context, device Device) error

	// DeleteExpiredBefore removes every device registered before cutoff
	// and reports how many were deleted.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MessageRenderer converts a notification event into displayable
// content. A nil message with a nil error means the event no longer
// renders to anything (e.g. the underlying object was deleted) and the
// device should be skipped silently.
type MessageRenderer interface {
	Render(ctx context.Context, event Event) (*RenderedMessage, error)
}

// BadgeService exposes the host's unread-notification count, shown as
// the iOS badge number.
type BadgeService interface {
	UnreadCount(ctx context.Context, username string) (int, error)
}

// Publisher delivers one outbound message to the push provider.
// Outcomes: nil on success (or when publishing is disabled),
// ErrTokenInvalid when the provider confirmed the token is dead, a
// *TransientError otherwise.
type Publisher interface {
	Send(ctx context.Context, msg OutboundMessage) error
}
