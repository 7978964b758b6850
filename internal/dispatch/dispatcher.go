// Package dispatch fans a notification event out to every device
// registered for the target user. Delivery failures are isolated per
// device, and permanently rejected tokens are evicted from the
// registry.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/exo-addons/go-push-service/pkg/push"
)

const (
	logServiceName   = "notifications"
	logOperationName = "send-push-notification"
	maskedTokenChars = 4
)

type Dispatcher struct {
	registry  push.DeviceRegistry
	renderer  push.MessageRenderer
	publisher push.Publisher
	logger    *slog.Logger
}

func NewDispatcher(
	registry push.DeviceRegistry,
	renderer push.MessageRenderer,
	publisher push.Publisher,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger.With("component", "Dispatcher"),
	}
}

// Dispatch delivers the event to every device the user has registered.
// One device failing never stops delivery to the others, so the method
// has no error to return; outcomes are logged per device.
func (d *Dispatcher) Dispatch(ctx context.Context, event push.Event, username string) {
	devices, err := d.registry.DevicesForUser(ctx, username)
	if err != nil {
		d.logger.Error("Could not load devices, dropping event.",
			"user", username, "notification_id", event.ID, "error", err)
		return
	}
	if len(devices) == 0 {
		d.logger.Debug("No registered devices for user.", "user", username, "notification_id", event.ID)
		return
	}

	rendered, err := d.renderer.Render(ctx, event)
	if err != nil {
		d.logger.Error("Could not render notification, dropping event.",
			"user", username, "plugin", event.PluginID, "notification_id", event.ID, "error", err)
		return
	}
	if rendered == nil {
		d.logger.Debug("Notification rendered to nothing, skipping delivery.",
			"user", username, "plugin", event.PluginID, "notification_id", event.ID)
		return
	}
	if rendered.URL == "" {
		d.logger.Debug("Notification has no target URL.",
			"user", username, "plugin", event.PluginID, "notification_id", event.ID)
	}

	for _, device := range devices {
		d.sendToDevice(ctx, device, *rendered)
	}
}

func (d *Dispatcher) sendToDevice(ctx context.Context, device push.Device, rendered push.RenderedMessage) {
	message := push.OutboundMessage{
		Receiver:   device.Username,
		Token:      device.Token,
		DeviceType: device.Type,
		Title:      rendered.Title,
		Body:       rendered.Body,
		URL:        rendered.URL,
	}

	start := time.Now()
	err := d.publisher.Send(ctx, message)
	duration := time.Since(start)

	if err == nil {
		d.logger.Info("Push notification delivered.",
			"remote_service", logServiceName,
			"operation", logOperationName,
			"user", device.Username,
			"token", push.Mask(device.Token, maskedTokenChars),
			"type", device.Type,
			"status", "ok",
			"duration_ms", duration.Milliseconds())
		return
	}

	d.logger.Warn("Push notification failed.",
		"remote_service", logServiceName,
		"operation", logOperationName,
		"user", device.Username,
		"token", push.Mask(device.Token, maskedTokenChars),
		"type", device.Type,
		"status", "ko",
		"duration_ms", duration.Milliseconds(),
		"error", err)

	if errors.Is(err, push.ErrTokenInvalid) {
		d.evictToken(ctx, device.Token)
	}
}

// evictToken removes a token FCM reported as permanently unusable. The
// device is looked up again by token so a registration that changed
// mid-flight is still deleted by its current identity.
func (d *Dispatcher) evictToken(ctx context.Context, token string) {
	device, err := d.registry.DeviceByToken(ctx, token)
	if err != nil {
		d.logger.Error("Could not look up invalid token for removal.",
			"token", push.Mask(token, maskedTokenChars), "error", err)
		return
	}
	if device == nil {
		return
	}
	if err := d.registry.Delete(ctx, *device); err != nil {
		d.logger.Error("Could not delete device with invalid token.",
			"token", push.Mask(token, maskedTokenChars), "device_id", device.ID, "error", err)
		return
	}
	d.logger.Info("Removed device with invalid token.",
		"user", device.Username,
		"token", push.Mask(token, maskedTokenChars),
		"type", device.Type)
}
