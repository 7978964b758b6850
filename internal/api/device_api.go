package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// DeviceAPI exposes device registration over REST. The authenticated
// user comes from the auth middleware; callers can only see and manage
// their own registrations.
type DeviceAPI struct {
	Registry push.DeviceRegistry
	Logger   *slog.Logger
}

func NewDeviceAPI(registry push.DeviceRegistry, logger *slog.Logger) *DeviceAPI {
	return &DeviceAPI{
		Registry: registry,
		Logger:   logger,
	}
}

type RegisterDeviceRequest struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

func (api *DeviceAPI) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}
	platform, err := push.ParsePlatformType(req.Type)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "unknown device type")
		return
	}

	device := push.Device{
		Token:        req.Token,
		Username:     username,
		Type:         platform,
		RegisteredAt: time.Now(),
	}
	if err := api.Registry.Save(ctx, device); err != nil {
		if errors.Is(err, push.ErrTokenOwned) {
			response.WriteJSONError(w, http.StatusConflict, "token is registered to another user")
			return
		}
		api.Logger.Error("failed to register device", "user", username, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	api.Logger.Info("Device registered.",
		"user", username, "type", platform, "token", push.Mask(req.Token, 4))
	w.WriteHeader(http.StatusNoContent)
}

func (api *DeviceAPI) GetDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token := r.PathValue("token")
	if token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	device, err := api.Registry.DeviceByToken(ctx, token)
	if err != nil {
		api.Logger.Error("failed to look up device", "user", username, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	if device == nil {
		response.WriteJSONError(w, http.StatusNotFound, "device not found")
		return
	}
	// A token belongs to one user; do not confirm its existence to anyone else.
	if device.Username != username {
		response.WriteJSONError(w, http.StatusNotFound, "device not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(device)
}

// UnregisterDevice is idempotent; removing an absent or foreign token
// still answers 204 so clients can retry blindly on app shutdown.
func (api *DeviceAPI) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token := r.PathValue("token")
	if token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	device, err := api.Registry.DeviceByToken(ctx, token)
	if err != nil {
		api.Logger.Error("failed to look up device", "user", username, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	if device != nil && device.Username == username {
		if err := api.Registry.Delete(ctx, *device); err != nil {
			// Log but don't fail hard; idempotency is preferred for unregister
			api.Logger.Warn("failed to unregister device", "user", username, "err", err)
		} else {
			api.Logger.Info("Device unregistered.",
				"user", username, "type", device.Type, "token", push.Mask(token, 4))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
