package notifysync_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync"
	"github.com/dmitrymomot/notifysync/pkg/connection"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NOTIFY_API_URL", "https://api.example.com")

	cfg, err := notifysync.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "signalr-hubs/notifications", cfg.HubPath)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 1, cfg.FallbackAfter)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, "127.0.0.1:8088", cfg.Status.Addr)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.OAuth.Enabled())

	schedule, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, connection.DefaultSchedule(), schedule)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("NOTIFY_API_URL", "http://localhost:44388")
	t.Setenv("NOTIFY_POLL_INTERVAL", "5s")
	t.Setenv("NOTIFY_RECONNECT_SCHEDULE", "1s,3s")
	t.Setenv("NOTIFY_FALLBACK_AFTER", "3")
	t.Setenv("NOTIFY_OAUTH_ISSUER", "http://localhost:44301")
	t.Setenv("NOTIFY_STATUS_ADDR", ":9000")

	cfg, err := notifysync.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.FallbackAfter)
	assert.True(t, cfg.OAuth.Enabled())
	assert.Equal(t, ":9000", cfg.Status.Addr)

	schedule, err := cfg.Schedule()
	require.NoError(t, err)
	assert.Equal(t, connection.Schedule{time.Second, 3 * time.Second}, schedule)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notify.env")
	require.NoError(t, os.WriteFile(path, []byte("NOTIFY_PAGE_SIZE=50\n"), 0o600))
	t.Setenv("NOTIFY_API_URL", "https://api.example.com")
	// restores the variable the file sets once the test ends
	t.Setenv("NOTIFY_PAGE_SIZE", "")

	cfg, err := notifysync.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PageSize)
}

func TestLoadConfig_MissingAPIURL(t *testing.T) {
	t.Setenv("NOTIFY_API_URL", "")
	require.NoError(t, os.Unsetenv("NOTIFY_API_URL"))

	_, err := notifysync.LoadConfig()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := notifysync.Config{
		APIURL:            "https://api.example.com",
		PollInterval:      time.Second,
		ReconnectSchedule: "0s,2s",
		FallbackAfter:     1,
		PageSize:          20,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*notifysync.Config)
	}{
		{"relative url", func(c *notifysync.Config) { c.APIURL = "/api" }},
		{"ftp url", func(c *notifysync.Config) { c.APIURL = "ftp://example.com" }},
		{"bad schedule", func(c *notifysync.Config) { c.ReconnectSchedule = "soon" }},
		{"zero poll", func(c *notifysync.Config) { c.PollInterval = 0 }},
		{"negative fallback", func(c *notifysync.Config) { c.FallbackAfter = -1 }},
		{"zero page", func(c *notifysync.Config) { c.PageSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), notifysync.ErrInvalidConfig)
		})
	}
}
