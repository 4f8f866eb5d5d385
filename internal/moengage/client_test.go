package moengage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmtools/brz2moe/internal/config"
	"github.com/crmtools/brz2moe/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDetail() *models.CampaignDetail {
	return &models.CampaignDetail{Raw: map[string]any{
		"campaign": map[string]any{"id": "c1", "campaign_name": "Welcome"},
	}}
}

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.MoEngageConfig{
		EmailServiceURL: server.URL,
		PushServiceURL:  server.URL,
		SMSServiceURL:   server.URL,
		Credentials: models.MoEngageCredentials{
			BearerToken:  "bearer-1",
			RefreshToken: "refresh-1",
			Origin:       "https://dashboard-01.moengage.com",
			APIURL:       "https://dashboard-01.moengage.com/v1.0/campaigns/draft",
		},
	}, timeout, testLogger())
	require.NoError(t, err)
	return client
}

func TestClient_Dispatch(t *testing.T) {
	t.Run("routes email campaigns and builds the envelope", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]any
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Write([]byte(`{"message": "created", "moengage_response": {"campaign_id": "draft-1"}}`))
		}), 5*time.Second)

		result, err := client.Dispatch(context.Background(), testDetail(), models.TypeEmail)
		require.NoError(t, err)

		assert.Equal(t, "/v1/migrate-campaign", gotPath)
		assert.Equal(t, "draft-1", result.DraftID)
		assert.True(t, result.DraftCreated)

		campaign, ok := gotBody["campaign"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Welcome", campaign["campaign_name"])

		creds, ok := gotBody["moengage_credentials"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "bearer-1", creds["bearer_token"])
		assert.Equal(t, "refresh-1", creds["refresh_token"])
		assert.Equal(t, "https://dashboard-01.moengage.com", creds["origin"])
	})

	t.Run("routes push and multi to the push endpoint", func(t *testing.T) {
		var paths []string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			w.Write([]byte(`{"message": "ok", "draft_created": true, "platforms_detected": ["ios", "android"]}`))
		}), 5*time.Second)

		result, err := client.Dispatch(context.Background(), testDetail(), models.TypePush)
		require.NoError(t, err)
		assert.Equal(t, []string{"ios", "android"}, result.PlatformsDetected)

		_, err = client.Dispatch(context.Background(), testDetail(), models.TypeMulti)
		require.NoError(t, err)

		assert.Equal(t, []string{"/v1/migrate-push-campaign", "/v1/migrate-push-campaign"}, paths)
	})

	t.Run("routes sms campaigns", func(t *testing.T) {
		var gotPath string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"message": "created"}`))
		}), 5*time.Second)

		result, err := client.Dispatch(context.Background(), testDetail(), models.TypeSMS)
		require.NoError(t, err)

		assert.Equal(t, "/v1/migrate-sms-campaign", gotPath)
		// 201 counts as success; a missing draft id is tolerated.
		assert.Equal(t, "", result.DraftID)
		assert.True(t, result.DraftCreated)
	})

	t.Run("unsupported type fails before any network call", func(t *testing.T) {
		var calls int64
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&calls, 1)
		}), 5*time.Second)

		_, err := client.Dispatch(context.Background(), testDetail(), models.TypeBanner)

		var dispatchErr *DispatchError
		require.ErrorAs(t, err, &dispatchErr)
		assert.Equal(t, DispatchErrUnsupportedType, dispatchErr.Reason)
		assert.Zero(t, atomic.LoadInt64(&calls))
	})

	t.Run("remote error surfaces the service detail", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail": "invalid campaign payload"}`))
		}), 5*time.Second)

		_, err := client.Dispatch(context.Background(), testDetail(), models.TypeEmail)

		var dispatchErr *DispatchError
		require.ErrorAs(t, err, &dispatchErr)
		assert.Equal(t, DispatchErrRemote, dispatchErr.Reason)
		assert.Contains(t, err.Error(), "invalid campaign payload")
	})

	t.Run("timeout is reported as its own reason", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}), 20*time.Millisecond)

		_, err := client.Dispatch(context.Background(), testDetail(), models.TypeEmail)

		var dispatchErr *DispatchError
		require.ErrorAs(t, err, &dispatchErr)
		assert.Equal(t, DispatchErrTimeout, dispatchErr.Reason)
	})

	t.Run("draft_created false is passed through", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message": "converted", "draft_created": false}`))
		}), 5*time.Second)

		result, err := client.Dispatch(context.Background(), testDetail(), models.TypePush)
		require.NoError(t, err)
		assert.False(t, result.DraftCreated)
	})
}

func TestClient_TestConnection(t *testing.T) {
	t.Run("all services healthy", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.Write([]byte(`{"status": "healthy"}`))
		}), 5*time.Second)

		assert.NoError(t, client.TestConnection(context.Background()))
	})

	t.Run("unhealthy service fails", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}), 5*time.Second)

		assert.Error(t, client.TestConnection(context.Background()))
	})
}

func TestNewClient(t *testing.T) {
	t.Run("requires bearer token", func(t *testing.T) {
		_, err := NewClient(&config.MoEngageConfig{
			Credentials: models.MoEngageCredentials{RefreshToken: "r"},
		}, time.Second, testLogger())
		assert.Error(t, err)
	})

	t.Run("requires refresh token", func(t *testing.T) {
		_, err := NewClient(&config.MoEngageConfig{
			Credentials: models.MoEngageCredentials{BearerToken: "b"},
		}, time.Second, testLogger())
		assert.Error(t, err)
	})
}
