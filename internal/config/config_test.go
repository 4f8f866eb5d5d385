package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `
braze:
  credentials:
    dashboard_url: https://dashboard-09.braze.com
    session_id: sess-123
    app_group_id: group-456
moengage:
  credentials:
    bearer_token: bearer-1
    refresh_token: refresh-1
`

func TestLoadConfig(t *testing.T) {
	t.Run("loads a valid file and applies defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, validConfig))
		require.NoError(t, err)

		assert.Equal(t, "https://dashboard-09.braze.com", cfg.Braze.Credentials.DashboardURL)
		assert.Equal(t, "http://localhost:8082", cfg.Braze.FetcherURL)
		assert.Equal(t, "http://localhost:8080", cfg.MoEngage.EmailServiceURL)
		assert.Equal(t, "http://localhost:8081", cfg.MoEngage.PushServiceURL)
		assert.Equal(t, "http://localhost:8083", cfg.MoEngage.SMSServiceURL)
		assert.Equal(t, "https://dashboard-01.moengage.com", cfg.MoEngage.Credentials.Origin)
		assert.Equal(t, 30*time.Second, cfg.Migration.RequestTimeout)
		assert.Equal(t, time.Second, cfg.Migration.CampaignDelay)
		assert.Equal(t, "http://localhost:8084", cfg.ContentBlocks.ServiceURL)
		assert.Equal(t, 9, cfg.ContentBlocks.DashboardNumber)
		assert.Equal(t, "dashboard-01", cfg.ContentBlocks.Credentials.DataCenter)
	})

	t.Run("content block credentials are optional", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, validConfig))
		require.NoError(t, err)
		assert.Empty(t, cfg.ContentBlocks.Credentials.AppKey)
	})

	t.Run("dashboard number out of range fails validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, validConfig+`
content_blocks:
  dashboard_number: 0
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "content_blocks.dashboard_number")
	})

	t.Run("explicit values override defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, validConfig+`
migration:
  campaign_delay: 0s
  request_timeout: 10s
`))
		require.NoError(t, err)

		assert.Equal(t, time.Duration(0), cfg.Migration.CampaignDelay)
		assert.Equal(t, 10*time.Second, cfg.Migration.RequestTimeout)
	})

	t.Run("missing braze credential field fails validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
braze:
  credentials:
    dashboard_url: https://dashboard-09.braze.com
    session_id: sess-123
moengage:
  credentials:
    bearer_token: bearer-1
    refresh_token: refresh-1
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "braze.credentials.app_group_id")
	})

	t.Run("missing moengage tokens fail validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `
braze:
  credentials:
    dashboard_url: https://dashboard-09.braze.com
    session_id: sess-123
    app_group_id: group-456
moengage:
  credentials:
    bearer_token: bearer-1
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refresh_token")
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestSaveConfig(t *testing.T) {
	t.Run("round trips through load", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, validConfig))
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "nested", "config.yaml")
		require.NoError(t, SaveConfig(cfg, path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, cfg.Braze.Credentials, loaded.Braze.Credentials)
		assert.Equal(t, cfg.MoEngage.Credentials, loaded.MoEngage.Credentials)
	})
}
