// Package badge resolves the unread counter shown on iOS and web
// application icons. The count lives in the upstream notification
// system and is fetched over its REST API.
package badge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultHTTPTimeout = 5 * time.Second

// Client fetches per-user unread counts. A missing or failing badge
// endpoint never blocks delivery; the count simply degrades to zero.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a badge client. An empty baseURL disables lookups
// and every count resolves to zero.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With("component", "BadgeClient"),
	}
}

type unreadResponse struct {
	Count int `json:"count"`
}

// UnreadCount returns the user's unread notification count. Failures
// are logged and reported as zero so a badge outage cannot stop a push
// from going out.
func (c *Client) UnreadCount(ctx context.Context, username string) (int, error) {
	if c.baseURL == "" {
		return 0, nil
	}

	endpoint := fmt.Sprintf("%s/rest/v1/notifications/unread/%s", c.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create badge request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Badge lookup failed, defaulting to zero.", "user", username, "error", err)
		return 0, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Badge lookup returned an unexpected status, defaulting to zero.",
			"user", username, "status_code", resp.StatusCode)
		return 0, nil
	}

	var payload unreadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn("Could not decode badge response, defaulting to zero.", "user", username, "error", err)
		return 0, nil
	}
	if payload.Count < 0 {
		return 0, nil
	}
	return payload.Count, nil
}
