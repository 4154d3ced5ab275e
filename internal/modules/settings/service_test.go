package settings

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupService(t *testing.T) *Service {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo, err := NewRepository(db, log)
	require.NoError(t, err)

	return NewService(repo, log)
}

func TestGetSet(t *testing.T) {
	svc := setupService(t)

	// Unset keys return nil, not an error
	value, err := svc.Get("scan_feed_url")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, svc.Set("scan_feed_url", "https://feed.example.com"))

	value, err = svc.Get("scan_feed_url")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "https://feed.example.com", *value)

	// Set replaces
	require.NoError(t, svc.Set("scan_feed_url", "https://feed2.example.com"))
	value, err = svc.Get("scan_feed_url")
	require.NoError(t, err)
	assert.Equal(t, "https://feed2.example.com", *value)
}

func TestKeyNormalization(t *testing.T) {
	svc := setupService(t)

	require.NoError(t, svc.Set("  Scan_Feed_API_Key  ", "abc123xyz9"))

	value, err := svc.Get("scan_feed_api_key")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "abc123xyz9", *value)

	assert.ErrorIs(t, svc.Set("   ", "v"), ErrInvalidKey)
	_, err = svc.Get("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestAll_MasksSecrets(t *testing.T) {
	svc := setupService(t)

	require.NoError(t, svc.Set("scan_feed_api_key", "abc123xyz9"))
	require.NoError(t, svc.Set("backup_secret_access_key", "sk"))
	require.NoError(t, svc.Set("theme", "dark"))

	all, err := svc.All()
	require.NoError(t, err)

	assert.Equal(t, "****xyz9", all["scan_feed_api_key"])
	assert.Equal(t, "****", all["backup_secret_access_key"])
	// Non-secret values pass through untouched
	assert.Equal(t, "dark", all["theme"])
}

func TestDelete(t *testing.T) {
	svc := setupService(t)

	require.NoError(t, svc.Set("theme", "dark"))
	require.NoError(t, svc.Delete("theme"))

	value, err := svc.Get("theme")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Deleting a missing key is idempotent
	require.NoError(t, svc.Delete("theme"))
}
