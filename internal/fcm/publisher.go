package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/exo-addons/go-push-service/pkg/push"
)

const (
	logServiceName   = "firebase-cloud-messaging"
	logOperationName = "send-push-notification"

	sendEndpointFormat = "https://fcm.googleapis.com/v1/projects/%s/messages:send"

	// The provider must never hang a dispatching thread indefinitely.
	defaultHTTPTimeout = 10 * time.Second
)

// Publisher posts outbound messages to the FCM v1 send endpoint and
// classifies the response. It is stateless per call; the HTTP client's
// connection pool and the credential cache are shared across publishes.
type Publisher struct {
	creds      *CredentialManager
	builder    *MessageBuilder
	httpClient *http.Client
	endpoint   string
	logger     *slog.Logger
}

// NewPublisher creates the publisher. A nil creds manager means no
// service account was configured: the publisher stays up but Send
// becomes a silent no-op, so a misconfigured installation degrades to
// "no push notifications" instead of failing notification dispatch.
// endpoint overrides the per-project default URL; tests use it.
func NewPublisher(creds *CredentialManager, builder *MessageBuilder, httpClient *http.Client, endpoint string, logger *slog.Logger) *Publisher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if endpoint == "" && creds != nil {
		endpoint = fmt.Sprintf(sendEndpointFormat, creds.ProjectID())
	}
	return &Publisher{
		creds:      creds,
		builder:    builder,
		httpClient: httpClient,
		endpoint:   endpoint,
		logger:     logger.With("component", "FCMPublisher"),
	}
}

// Send publishes one message. Outcomes:
//   - nil: accepted by FCM, or publishing is disabled.
//   - push.ErrTokenInvalid (wrapped): FCM confirmed the registration is
//     gone; the caller should purge the device.
//   - *push.TransientError: anything else, device kept, no retry here.
func (p *Publisher) Send(ctx context.Context, msg push.OutboundMessage) error {
	if p.creds == nil {
		p.logger.Debug("publishing disabled, no service account configured", "user", msg.Receiver)
		return nil
	}

	bearer, err := p.creds.AccessToken()
	if err != nil {
		return &push.TransientError{Reason: err.Error()}
	}

	payload, err := p.builder.Build(ctx, msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling fcm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building fcm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	masked := push.Mask(msg.Token, 4)
	start := time.Now()

	resp, err := p.httpClient.Do(req)
	durationMs := time.Since(start).Milliseconds()

	if err != nil || resp == nil {
		reason := "response or response code is null"
		if err != nil {
			reason = err.Error()
		}
		p.logOutcome(msg, masked, "ko", 0, durationMs, reason)
		return &push.TransientError{Reason: reason}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		p.logOutcome(msg, masked, "ok", resp.StatusCode, durationMs, "")
		p.logger.Info("message sent to Firebase",
			"user", msg.Receiver, "token", masked, "type", msg.DeviceType)
		return nil
	}

	reason := http.StatusText(resp.StatusCode)
	p.logOutcome(msg, masked, "ko", resp.StatusCode, durationMs, reason)

	if resp.StatusCode == http.StatusBadRequest && isTokenInvalid(resp.Body) {
		return fmt.Errorf("response is %d - %s: %w", resp.StatusCode, reason, push.ErrTokenInvalid)
	}
	return &push.TransientError{StatusCode: resp.StatusCode, Reason: reason}
}

func (p *Publisher) logOutcome(msg push.OutboundMessage, maskedToken, status string, code int, durationMs int64, errMsg string) {
	attrs := []any{
		"remote_service", logServiceName,
		"operation", logOperationName,
		"user", msg.Receiver,
		"token", maskedToken,
		"type", msg.DeviceType,
		"status", status,
		"duration_ms", durationMs,
	}
	if code != 0 && status == "ko" {
		attrs = append(attrs, "status_code", code)
	}
	if errMsg != "" {
		attrs = append(attrs, "error_msg", errMsg)
	}
	p.logger.Info("push notification publish", attrs...)
}

// fcmResponse is the error envelope FCM returns on non-200 answers.
type fcmResponse struct {
	Error *fcmError `json:"error"`
}

type fcmError struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Status  string           `json:"status"`
	Details []fcmErrorDetail `json:"details"`
}

type fcmErrorDetail struct {
	Type            string              `json:"@type"`
	FieldViolations []fcmFieldViolation `json:"fieldViolations"`
}

type fcmFieldViolation struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// isTokenInvalid reports whether a 400 response condemns the device
// token: either the registration is gone (UNREGISTERED) or the request
// was rejected with a field violation naming the message token.
func isTokenInvalid(body io.Reader) bool {
	var resp fcmResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil || resp.Error == nil {
		return false
	}
	switch resp.Error.Status {
	case "UNREGISTERED":
		return true
	case "INVALID_ARGUMENT":
		for _, detail := range resp.Error.Details {
			for _, violation := range detail.FieldViolations {
				if violation.Field == "message.token" {
					return true
				}
			}
		}
	}
	return false
}
