// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
// Values come from environment variables (.env file supported) and can be
// overridden at runtime from the settings database (API credentials, etc.).
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	DevMode  bool
	LogLevel string

	// Upstream scan feed (the scanner service that produces raw PMCC records)
	ScanFeedURL    string
	ScanFeedAPIKey string
	QuoteStreamURL string

	// Job schedules (cron expressions, robfig/cron with seconds field)
	ScanRefreshSchedule string
	MarkPricesSchedule  string
	BackupSchedule      string

	// S3-compatible backup storage
	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
// Works with AWS S3, Cloudflare R2 and any other S3-compatible endpoint.
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // Custom endpoint URL (empty for AWS S3)
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	KeepLast        int // Number of backups to retain when pruning
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("COVERCALL_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("COVERCALL_PORT", 8010),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ScanFeedURL:         getEnv("SCAN_FEED_URL", "http://localhost:9010"),
		ScanFeedAPIKey:      getEnv("SCAN_FEED_API_KEY", ""),
		QuoteStreamURL:      getEnv("QUOTE_STREAM_URL", ""),
		ScanRefreshSchedule: getEnv("SCAN_REFRESH_SCHEDULE", "0 */15 * * * *"),
		MarkPricesSchedule:  getEnv("MARK_PRICES_SCHEDULE", "0 */5 * * * *"),
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		Backup:              loadBackupConfig(),
	}

	return cfg, nil
}

// SettingsReader is the subset of the settings repository the config layer
// needs. Settings DB values take precedence over environment variables.
type SettingsReader interface {
	Get(key string) (*string, error)
}

// UpdateFromSettings updates configuration from the settings database.
// Should be called after the config database is initialized. Empty settings
// keep the environment value as fallback.
func (c *Config) UpdateFromSettings(settings SettingsReader) error {
	feedKey, err := settings.Get("scan_feed_api_key")
	if err != nil {
		return fmt.Errorf("failed to get scan_feed_api_key from settings: %w", err)
	}
	if feedKey != nil && *feedKey != "" {
		c.ScanFeedAPIKey = *feedKey
	}

	feedURL, err := settings.Get("scan_feed_url")
	if err != nil {
		return fmt.Errorf("failed to get scan_feed_url from settings: %w", err)
	}
	if feedURL != nil && *feedURL != "" {
		c.ScanFeedURL = *feedURL
	}

	if c.Backup != nil {
		accessKey, err := settings.Get("backup_access_key_id")
		if err != nil {
			return fmt.Errorf("failed to get backup_access_key_id from settings: %w", err)
		}
		if accessKey != nil && *accessKey != "" {
			c.Backup.AccessKeyID = *accessKey
		}

		secretKey, err := settings.Get("backup_secret_access_key")
		if err != nil {
			return fmt.Errorf("failed to get backup_secret_access_key from settings: %w", err)
		}
		if secretKey != nil && *secretKey != "" {
			c.Backup.SecretAccessKey = *secretKey
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:          getEnv("BACKUP_S3_BUCKET", "covercall-backups"),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		KeepLast:        getEnvAsInt("BACKUP_KEEP_LAST", 14),
	}
}
