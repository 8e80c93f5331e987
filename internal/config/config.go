package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	DatabaseURL string
	// Admin credential: the bcrypt hash wins when both are set.
	AdminPassword     string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration
	CORSOrigin        string
	// Redis - optional session-artifact storage
	RedisURL string
	// Meilisearch - optional link search backend
	MeiliURL       string
	MeiliMasterKey string
	// Object storage - optional snapshot archiving
	BackupEndpoint  string
	BackupAccessKey string
	BackupSecretKey string
	BackupBucket    string
	BackupUseSSL    bool
}

func Load() Config {
	return Config{
		Addr:              getenv("API_ADDR", ":8788"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AdminPassword:     getenv("WAYPOST_ADMIN_PASSWORD", "admin"),
		AdminPasswordHash: getenv("WAYPOST_ADMIN_PASSWORD_HASH", ""),
		SessionSecret:     getenv("WAYPOST_SESSION_SECRET", "waypost-dev-secret"),
		SessionTTL:        time.Duration(getenvInt("WAYPOST_SESSION_TTL_SECONDS", 86400)) * time.Second,
		CORSOrigin:        getenv("WAYPOST_CORS_ORIGIN", "*"),
		// Redis - sessions fall back to Postgres when unset
		RedisURL: getenv("REDIS_URL", ""),
		// Meilisearch - search falls back to Postgres when unset
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// Object storage - archiving disabled when unset
		BackupEndpoint:  getenv("WAYPOST_BACKUP_ENDPOINT", ""),
		BackupAccessKey: getenv("WAYPOST_BACKUP_ACCESS_KEY", ""),
		BackupSecretKey: getenv("WAYPOST_BACKUP_SECRET_KEY", ""),
		BackupBucket:    getenv("WAYPOST_BACKUP_BUCKET", "waypost-snapshots"),
		BackupUseSSL:    getenvInt("WAYPOST_BACKUP_USE_SSL", 1) != 0,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
