package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COVERCALL_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:9010", cfg.ScanFeedURL)
	assert.Equal(t, "0 */15 * * * *", cfg.ScanRefreshSchedule)
	require.NotNil(t, cfg.Backup)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 14, cfg.Backup.KeepLast)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COVERCALL_DATA_DIR", t.TempDir())
	t.Setenv("COVERCALL_PORT", "9999")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("BACKUP_ENABLED", "true")
	t.Setenv("BACKUP_KEEP_LAST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.True(t, cfg.Backup.Enabled)
	// Unparseable numbers fall back to the default
	assert.Equal(t, 14, cfg.Backup.KeepLast)
}

type fakeSettings map[string]string

func (f fakeSettings) Get(key string) (*string, error) {
	if v, ok := f[key]; ok {
		return &v, nil
	}
	return nil, nil
}

func TestUpdateFromSettings(t *testing.T) {
	t.Setenv("COVERCALL_DATA_DIR", t.TempDir())
	t.Setenv("SCAN_FEED_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	require.NoError(t, cfg.UpdateFromSettings(fakeSettings{
		"scan_feed_api_key":        "db-key",
		"backup_secret_access_key": "db-secret",
	}))

	// Settings database wins over the environment
	assert.Equal(t, "db-key", cfg.ScanFeedAPIKey)
	assert.Equal(t, "db-secret", cfg.Backup.SecretAccessKey)
	// Unset settings keep the env/default value
	assert.Equal(t, "http://localhost:9010", cfg.ScanFeedURL)
}
