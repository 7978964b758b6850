package fcm_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exo-addons/go-push-service/internal/fcm"
	"github.com/exo-addons/go-push-service/pkg/push"
)

// stubBadgeService returns a fixed unread count.
type stubBadgeService struct {
	count int
	err   error
}

func (s *stubBadgeService) UnreadCount(_ context.Context, _ string) (int, error) {
	return s.count, s.err
}

func androidMessage() push.OutboundMessage {
	return push.OutboundMessage{
		Receiver:   "john",
		Token:      "token1",
		DeviceType: push.PlatformAndroid,
		Title:      "My Notification Title",
		Body:       "My Notification Body",
		URL:        "http://notification.url/target",
	}
}

func iosMessage() push.OutboundMessage {
	msg := androidMessage()
	msg.Receiver = "mary"
	msg.Token = "token2"
	msg.DeviceType = push.PlatformIOS
	return msg
}

func TestBuildAndroidPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("content travels in the data object", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, &stubBadgeService{count: 5})

		req, err := builder.Build(ctx, androidMessage())
		require.NoError(t, err)

		assert.False(t, req.ValidateOnly)
		assert.Equal(t, "token1", req.Message.Token)
		assert.Equal(t, "My Notification Title", req.Message.Data["title"])
		assert.Equal(t, "My Notification Body", req.Message.Data["body"])
		assert.Equal(t, "http://notification.url/target", req.Message.Data["url"])
		assert.Nil(t, req.Message.Notification)
		assert.Nil(t, req.Message.APNS)
		assert.Nil(t, req.Message.Android)
	})

	t.Run("HTML is kept verbatim for the client app", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, nil)
		msg := androidMessage()
		msg.Title = "My <b>Notification</b> Title"
		msg.Body = `My Notification <div class="myclass">Body</div>`

		req, err := builder.Build(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, "My <b>Notification</b> Title", req.Message.Data["title"])
		assert.Equal(t, `My Notification <div class="myclass">Body</div>`, req.Message.Data["body"])
	})

	t.Run("ttl only when expiration configured", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{MessageExpirationSeconds: 3600}, nil)

		req, err := builder.Build(ctx, androidMessage())
		require.NoError(t, err)
		require.NotNil(t, req.Message.Android)
		assert.Equal(t, "3600s", req.Message.Android.TTL)
	})

	t.Run("inline images replaced by placeholder", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{InlineImageLabel: "inline image"}, nil)
		msg := androidMessage()
		msg.Body = `Look: <img src="http://img.url/pic.png" alt="pic"> nice`

		req, err := builder.Build(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, "Look: inline image nice", req.Message.Data["body"])
	})
}

func TestBuildApplePayload(t *testing.T) {
	ctx := context.Background()

	t.Run("notification object plus badge", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, &stubBadgeService{count: 5})

		req, err := builder.Build(ctx, iosMessage())
		require.NoError(t, err)

		assert.Equal(t, "token2", req.Message.Token)
		assert.Equal(t, map[string]string{"url": "http://notification.url/target"}, req.Message.Data)
		require.NotNil(t, req.Message.Notification)
		assert.Equal(t, "My Notification Title", req.Message.Notification.Title)
		assert.Equal(t, "My Notification Body", req.Message.Notification.Body)
		assert.Nil(t, req.Message.Android)
		require.NotNil(t, req.Message.APNS)
		assert.Equal(t, 5, req.Message.APNS.Payload.APS.Badge)
		assert.Empty(t, req.Message.APNS.Headers)
	})

	t.Run("HTML stripped from title and body", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, &stubBadgeService{})
		msg := iosMessage()
		msg.Title = "My <b>Notification</b> Title"
		msg.Body = "\n\nMy Notification \n\n<div class=\"myclass\">Body</div>"

		req, err := builder.Build(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, "My Notification Title", req.Message.Notification.Title)
		assert.Equal(t, "My Notification \n\nBody", req.Message.Notification.Body)
	})

	t.Run("entities decoded in plain-text body", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, &stubBadgeService{})
		msg := iosMessage()
		msg.Body = "Drinks &amp; snacks"

		req, err := builder.Build(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, "Drinks & snacks", req.Message.Notification.Body)
	})

	t.Run("web platform gets the same shape", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, &stubBadgeService{count: 2})
		msg := iosMessage()
		msg.DeviceType = push.PlatformWeb

		req, err := builder.Build(ctx, msg)
		require.NoError(t, err)
		assert.NotNil(t, req.Message.Notification)
		assert.NotNil(t, req.Message.APNS)
		assert.Nil(t, req.Message.Android)
	})

	t.Run("badge lookup failure fails the build", func(t *testing.T) {
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, &stubBadgeService{err: errors.New("host down")})

		_, err := builder.Build(ctx, iosMessage())
		assert.Error(t, err)
	})

	// The expiration header is the long-standing quirk, now MINUS the
	// ttl. This test pins the subtraction so any future sign flip is
	// deliberate.
	t.Run("apns-expiration is now minus ttl", func(t *testing.T) {
		const ttl = 3600
		builder := fcm.NewMessageBuilder(fcm.BuilderConfig{MessageExpirationSeconds: ttl}, &stubBadgeService{})

		before := time.Now().Add(-ttl * time.Second).Unix()
		req, err := builder.Build(ctx, iosMessage())
		after := time.Now().Add(-ttl * time.Second).Unix()
		require.NoError(t, err)

		raw := req.Message.APNS.Headers["apns-expiration"]
		require.NotEmpty(t, raw)
		expiration, err := strconv.ParseInt(raw, 10, 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, expiration, before)
		assert.LessOrEqual(t, expiration, after)
	})
}

func TestPayloadRoundTrip(t *testing.T) {
	builder := fcm.NewMessageBuilder(fcm.BuilderConfig{}, nil)
	msg := androidMessage()
	msg.Body = `He said "hello" and left`

	req, err := builder.Build(context.Background(), msg)
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var parsed struct {
		ValidateOnly bool `json:"validate_only"`
		Message      struct {
			Data  map[string]string `json:"data"`
			Token string            `json:"token"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "token1", parsed.Message.Token)
	assert.Equal(t, `He said "hello" and left`, parsed.Message.Data["body"])
}
