package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or an error on a miss.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedDeviceRegistry is a decorator adding read-aside caching of the
// per-user device list to any DeviceRegistry. Only DevicesForUser is
// cached; it is the call the fan-out makes for every notification.
type CachedDeviceRegistry struct {
	realStore push.DeviceRegistry
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedDeviceRegistry(realStore push.DeviceRegistry, cache CacheClient, ttl time.Duration) *CachedDeviceRegistry {
	return &CachedDeviceRegistry{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedDeviceRegistry) DevicesForUser(ctx context.Context, username string) ([]push.Device, error) {
	key := s.cacheKey(username)

	var cached []push.Device
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.DevicesForUser(ctx, username)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction. If Redis is down
	// we just serve from the real store.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

// DeviceByToken always goes to the real store. Token lookups happen on
// the rare invalid-token path and must see current ownership.
func (s *CachedDeviceRegistry) DeviceByToken(ctx context.Context, token string) (*push.Device, error) {
	return s.realStore.DeviceByToken(ctx, token)
}

func (s *CachedDeviceRegistry) Save(ctx context.Context, device push.Device) error {
	if err := s.realStore.Save(ctx, device); err != nil {
		return err
	}
	return s.invalidate(ctx, device.Username)
}

// Delete invalidates even though the DB write already succeeded; a
// stale cached list would keep pushing to the removed device until the
// TTL ran out.
func (s *CachedDeviceRegistry) Delete(ctx context.Context, device push.Device) error {
	if err := s.realStore.Delete(ctx, device); err != nil {
		return err
	}
	return s.invalidate(ctx, device.Username)
}

// DeleteExpiredBefore passes through. The sweeper does not know which
// users were affected, so their cached lists age out with the TTL.
func (s *CachedDeviceRegistry) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.realStore.DeleteExpiredBefore(ctx, cutoff)
}

func (s *CachedDeviceRegistry) invalidate(ctx context.Context, username string) error {
	return s.cache.Del(ctx, s.cacheKey(username))
}

func (s *CachedDeviceRegistry) cacheKey(username string) string {
	return fmt.Sprintf("push:devices:%s", username)
}
