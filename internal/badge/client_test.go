package badge_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exo-addons/go-push-service/internal/badge"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_UnreadCount(t *testing.T) {
	t.Run("returns the count from the unread endpoint", func(t *testing.T) {
		var requestedPath atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestedPath.Store(r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"count": 7}`))
		}))
		defer server.Close()

		client := badge.NewClient(server.URL, server.Client(), newTestLogger())

		count, err := client.UnreadCount(context.Background(), "john")

		require.NoError(t, err)
		assert.Equal(t, 7, count)
		assert.Equal(t, "/rest/v1/notifications/unread/john", requestedPath.Load())
	})

	t.Run("empty base URL disables lookups", func(t *testing.T) {
		client := badge.NewClient("", nil, newTestLogger())

		count, err := client.UnreadCount(context.Background(), "john")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("server failure degrades to zero instead of erroring", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := badge.NewClient(server.URL, server.Client(), newTestLogger())

		count, err := client.UnreadCount(context.Background(), "john")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("unreachable endpoint degrades to zero", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
		server.Close()

		client := badge.NewClient(server.URL, nil, newTestLogger())

		count, err := client.UnreadCount(context.Background(), "john")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("negative count is clamped to zero", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count": -3}`))
		}))
		defer server.Close()

		client := badge.NewClient(server.URL, server.Client(), newTestLogger())

		count, err := client.UnreadCount(context.Background(), "mary")

		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
