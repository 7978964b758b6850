// Package firestore implements the device registry on Google Cloud
// Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/exo-addons/go-push-service/pkg/push"
)

const devicesCollection = "push_devices"

// DeviceRegistry stores one document per registered token. Documents
// are keyed by a hash of the token so re-registration is an idempotent
// upsert and the collection cannot hold two rows for the same token.
type DeviceRegistry struct {
	client *firestore.Client
}

func NewDeviceRegistry(client *firestore.Client) *DeviceRegistry {
	return &DeviceRegistry{client: client}
}

// Save registers or refreshes a device. Re-registering a token the same
// user already owns updates the platform and registration time in
// place; a token owned by someone else is rejected with ErrTokenOwned.
func (r *DeviceRegistry) Save(ctx context.Context, device push.Device) error {
	if device.Token == "" {
		return fmt.Errorf("device token is required")
	}
	if device.Username == "" {
		return fmt.Errorf("device username is required")
	}
	if _, err := push.ParsePlatformType(string(device.Type)); err != nil {
		return err
	}
	if device.RegisteredAt.IsZero() {
		device.RegisteredAt = time.Now()
	}

	ref := r.deviceRef(device.Token)

	existing, err := r.DeviceByToken(ctx, device.Token)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Username != device.Username {
			return fmt.Errorf("token %s is registered to another user: %w",
				push.Mask(device.Token, 4), push.ErrTokenOwned)
		}
		device.ID = existing.ID
	}
	if device.ID == "" {
		device.ID = uuid.NewString()
	}

	if _, err := ref.Set(ctx, device); err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}
	return nil
}

// DeviceByToken returns the registration bound to token, or nil when
// none exists.
func (r *DeviceRegistry) DeviceByToken(ctx context.Context, token string) (*push.Device, error) {
	doc, err := r.deviceRef(token).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up device by token: %w", err)
	}

	var device push.Device
	if err := doc.DataTo(&device); err != nil {
		return nil, fmt.Errorf("failed to decode device document: %w", err)
	}
	return &device, nil
}

// DevicesForUser returns every device the user has registered. Corrupt
// documents are skipped rather than failing the whole fan-out.
func (r *DeviceRegistry) DevicesForUser(ctx context.Context, username string) ([]push.Device, error) {
	iter := r.collection().Where("username", "==", username).Documents(ctx)
	defer iter.Stop()

	devices := make([]push.Device, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var device push.Device
		if err := doc.DataTo(&device); err != nil {
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// Delete removes a registration. Deleting an absent device is a no-op.
func (r *DeviceRegistry) Delete(ctx context.Context, device push.Device) error {
	if _, err := r.deviceRef(device.Token).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}

// DeleteExpiredBefore removes every device registered before cutoff and
// reports how many were removed.
func (r *DeviceRegistry) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	iter := r.collection().Where("registered_at", "<", cutoff).Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("firestore iteration failed: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete expired device: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

func (r *DeviceRegistry) collection() *firestore.CollectionRef {
	return r.client.Collection(devicesCollection)
}

// deviceRef keys documents by token hash to prevent duplicates and
// hot-spotting.
func (r *DeviceRegistry) deviceRef(token string) *firestore.DocumentRef {
	sum := sha256.Sum256([]byte(token))
	return r.collection().Doc(hex.EncodeToString(sum[:]))
}
