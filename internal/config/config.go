package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config captures the runtime configuration for the motiontrace backend service.
type Config struct {
	AppPort    int
	LogLevel   string
	LocalDebug bool

	// Local backend layout.
	LocalStorageDir string
	LocalDBPath     string

	// Cloud metadata store.
	DatabaseURL string

	// Object storage. The access key pair is independent of the IAM token.
	S3Endpoint    string
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string

	// Identity service.
	IAMEndpoint          string
	OAuthToken           string
	ServiceAccountKey    string
	TokenRefreshInterval time.Duration
}

// Load reads configuration from environment variables, applying sensible defaults
// for local development while allowing overrides through environment variables.
func Load() (Config, error) {
	cfg := Config{
		AppPort:    getInt("MOTIONTRACE_PORT", 9000),
		LogLevel:   getString("MOTIONTRACE_LOG_LEVEL", "info"),
		LocalDebug: getBool("MOTIONTRACE_LOCAL_DEBUG", false),

		LocalStorageDir: getString("MOTIONTRACE_LOCAL_STORAGE_DIR", "local_storage"),
		LocalDBPath:     getString("MOTIONTRACE_LOCAL_DB_PATH", "local_storage/client_data.db"),

		DatabaseURL: getString("MOTIONTRACE_DATABASE_URL", ""),

		S3Endpoint:    getString("MOTIONTRACE_S3_ENDPOINT", ""),
		S3Bucket:      getString("MOTIONTRACE_S3_BUCKET", ""),
		S3Region:      getString("MOTIONTRACE_S3_REGION", "ru-central1"),
		S3AccessKeyID: getString("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getString("AWS_SECRET_ACCESS_KEY", ""),

		IAMEndpoint:          getString("MOTIONTRACE_IAM_ENDPOINT", "https://iam.api.cloud.yandex.net/iam/v1/tokens"),
		OAuthToken:           getString("MOTIONTRACE_OAUTH_TOKEN", ""),
		ServiceAccountKey:    getString("MOTIONTRACE_SA_KEY_FILE", ""),
		TokenRefreshInterval: getDuration("MOTIONTRACE_TOKEN_REFRESH_INTERVAL", time.Hour),
	}

	return cfg, nil
}

// Validate checks that every setting required by the cloud backend is present.
// Local-debug mode has no remote dependencies and always validates.
func (c Config) Validate() error {
	if c.LocalDebug {
		return nil
	}

	required := []struct {
		name  string
		value string
	}{
		{"MOTIONTRACE_DATABASE_URL", c.DatabaseURL},
		{"MOTIONTRACE_S3_ENDPOINT", c.S3Endpoint},
		{"MOTIONTRACE_S3_BUCKET", c.S3Bucket},
		{"AWS_ACCESS_KEY_ID", c.S3AccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", c.S3SecretKey},
	}
	for _, v := range required {
		if v.value == "" {
			return fmt.Errorf("missing required config variable: %s", v.name)
		}
	}

	if c.OAuthToken == "" && c.ServiceAccountKey == "" {
		return fmt.Errorf("either MOTIONTRACE_OAUTH_TOKEN or MOTIONTRACE_SA_KEY_FILE must be set")
	}

	return nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
