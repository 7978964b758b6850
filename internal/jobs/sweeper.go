// Package jobs holds the service's background maintenance tasks.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// DeviceSweeper periodically removes registrations older than the token
// TTL. FCM tokens rotate on reinstall and cache clears, so anything
// that has not re-registered within the TTL is almost certainly dead.
type DeviceSweeper struct {
	registry push.DeviceRegistry
	tokenTTL time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewDeviceSweeper(registry push.DeviceRegistry, tokenTTL, interval time.Duration, logger *slog.Logger) *DeviceSweeper {
	return &DeviceSweeper{
		registry: registry,
		tokenTTL: tokenTTL,
		interval: interval,
		logger:   logger.With("component", "DeviceSweeper"),
	}
}

// Run sweeps once immediately and then on every tick until the context
// is cancelled.
func (s *DeviceSweeper) Run(ctx context.Context) {
	s.logger.Info("Device sweeper started.", "token_ttl", s.tokenTTL, "interval", s.interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Device sweeper stopped.")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep removes every device whose registration predates the TTL
// window. Failures are logged and retried on the next tick.
func (s *DeviceSweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.tokenTTL)

	deleted, err := s.registry.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Sweep failed.", "cutoff", cutoff, "deleted", deleted, "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("Swept expired devices.", "cutoff", cutoff, "deleted", deleted)
	}
}
