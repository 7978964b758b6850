// Package push contains the public domain models and collaborator
// interfaces for the push-notification service.
package push

import (
	"fmt"
	"time"
)

// PlatformType identifies the kind of client a device token belongs to.
type PlatformType string

const (
	PlatformAndroid PlatformType = "android"
	PlatformIOS     PlatformType = "ios"
	PlatformWeb     PlatformType = "web"
)

// ParsePlatformType validates a raw platform string.
func ParsePlatformType(s string) (PlatformType, error) {
	switch PlatformType(s) {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return PlatformType(s), nil
	}
	return "", fmt.Errorf("unknown platform type %q", s)
}

// Device is a registered push target. Tokens are unique across the
// registry; a token registered by one user cannot be re-registered by
// another.
type Device struct {
	ID           string       `json:"id" firestore:"id"`
	Token        string       `json:"token" firestore:"token"`
	Username     string       `json:"username" firestore:"username"`
	Type         PlatformType `json:"type" firestore:"type"`
	RegisteredAt time.Time    `json:"registeredAt" firestore:"registered_at"`
}

// OutboundMessage is the per-device, per-attempt delivery payload. It is
// transient and never persisted.
type OutboundMessage struct {
	Receiver   string
	Token      string
	DeviceType PlatformType
	Title      string
	Body       string
	URL        string
}

// RenderedMessage is what a MessageRenderer produces from an event.
type RenderedMessage struct {
	Title string
	Body  string
	URL   string
}
