package fcm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/exo-addons/go-push-service/pkg/push"
)

// SendRequest is the body POSTed to the FCM v1 messages:send endpoint.
type SendRequest struct {
	ValidateOnly bool    `json:"validate_only"`
	Message      Message `json:"message"`
}

// Message is the platform-tagged payload variant. Android messages carry
// their content in Data so the client app renders them; iOS and web
// messages carry a Notification plus an APNS section.
type Message struct {
	Data         map[string]string `json:"data,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Android      *AndroidConfig    `json:"android,omitempty"`
	APNS         *APNSConfig       `json:"apns,omitempty"`
	Token        string            `json:"token"`
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type AndroidConfig struct {
	TTL string `json:"ttl,omitempty"`
}

type APNSConfig struct {
	Headers map[string]string `json:"headers,omitempty"`
	Payload APNSPayload       `json:"payload"`
}

type APNSPayload struct {
	APS APS `json:"aps"`
}

type APS struct {
	Badge int `json:"badge"`
}

// defaultInlineImageLabel replaces inline images in notification bodies
// when no localized label is configured.
const defaultInlineImageLabel = "inline image"

var inlineImagePattern = regexp.MustCompile(`(?is)<img[^>]*>`)

// BuilderConfig carries the builder's tunables.
type BuilderConfig struct {
	// MessageExpirationSeconds is how long FCM keeps the message for an
	// offline device. Zero leaves expiration to the provider's default.
	MessageExpirationSeconds int
	// InlineImageLabel is the localized placeholder for inline images.
	InlineImageLabel string
}

// MessageBuilder assembles the platform-specific FCM payload for an
// outbound message.
type MessageBuilder struct {
	cfg    BuilderConfig
	badges push.BadgeService
}

func NewMessageBuilder(cfg BuilderConfig, badges push.BadgeService) *MessageBuilder {
	if cfg.InlineImageLabel == "" {
		cfg.InlineImageLabel = defaultInlineImageLabel
	}
	return &MessageBuilder{cfg: cfg, badges: badges}
}

// Build produces the send request for one device. The shape depends on
// the device platform; see the Message doc.
func (b *MessageBuilder) Build(ctx context.Context, msg push.OutboundMessage) (*SendRequest, error) {
	body := b.replaceInlineImages(msg.Body)

	m := Message{Token: msg.Token}
	if msg.DeviceType == push.PlatformAndroid {
		m.Data = map[string]string{
			"title": msg.Title,
			"body":  body,
			"url":   msg.URL,
		}
		if b.cfg.MessageExpirationSeconds > 0 {
			m.Android = &AndroidConfig{TTL: fmt.Sprintf("%ds", b.cfg.MessageExpirationSeconds)}
		}
	} else {
		m.Data = map[string]string{"url": msg.URL}
		m.Notification = &Notification{
			Title: htmlToText(msg.Title),
			Body:  strings.TrimSpace(htmlToText(body)),
		}

		badge := 0
		if b.badges != nil {
			var err error
			badge, err = b.badges.UnreadCount(ctx, msg.Receiver)
			if err != nil {
				return nil, fmt.Errorf("fetching badge count for %s: %w", msg.Receiver, err)
			}
		}

		apns := &APNSConfig{Payload: APNSPayload{APS: APS{Badge: badge}}}
		if b.cfg.MessageExpirationSeconds > 0 {
			// Long-standing quirk: the expiration instant is computed as
			// now MINUS the TTL, not plus. Change it only deliberately,
			// together with its test.
			expiration := time.Now().Add(-time.Duration(b.cfg.MessageExpirationSeconds) * time.Second)
			apns.Headers = map[string]string{
				"apns-expiration": strconv.FormatInt(expiration.Unix(), 10),
			}
		}
		m.APNS = apns
	}

	return &SendRequest{ValidateOnly: false, Message: m}, nil
}

// replaceInlineImages swaps every <img> tag for the localized
// placeholder so bodies stay meaningful as plain text.
func (b *MessageBuilder) replaceInlineImages(s string) string {
	return inlineImagePattern.ReplaceAllString(s, b.cfg.InlineImageLabel)
}

// htmlToText strips markup and decodes entities, keeping the text
// content and its whitespace. Entities are decoded by the parser before
// any caller-side truncation can split them.
func htmlToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}
