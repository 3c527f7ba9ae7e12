// Package config loads process configuration from environment variables,
// with an optional Vault KV v2 overlay for secrets (enabled by VAULT_ADDR).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the api, worker, and bootstrap binaries need.
type Config struct {
	DevMode bool

	HTTPAddr    string
	CORSOrigins []string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDatabase string

	RedisHost string
	RedisPort int

	NATSURL string
	// InMemoryDispatcher routes projection jobs through an in-process
	// dispatcher instead of NATS. Development toggle only.
	InMemoryDispatcher bool

	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Region      string
	S3UseSSL      bool
	EmulatedS3URL string

	MaxUploadFileSizeBytes int64

	SweeperGrace time.Duration

	OTELEndpoint string
}

// Load reads configuration from the environment. When VAULT_ADDR is set the
// secret keys (database credentials, broker URL, storage credentials) are
// read from Vault instead, with the environment as fallback.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DEV_MODE", false)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "shopery")
	v.SetDefault("POSTGRES_DATABASE_NAME", "shopery")
	v.SetDefault("REDIS_DATABASE_HOST", "localhost")
	v.SetDefault("REDIS_DATABASE_PORT", 6379)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("ENABLE_IN_MEMORY_TASK_BROKER", false)
	v.SetDefault("S3_REGION", "eu-central-1")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("MAX_UPLOAD_FILE_SIZE_BYTES", 5*1024*1024)
	v.SetDefault("SWEEPER_GRACE_SECONDS", 60)

	cfg := &Config{
		DevMode:                v.GetBool("DEV_MODE"),
		HTTPAddr:               v.GetString("HTTP_ADDR"),
		CORSOrigins:            parseOrigins(v.GetString("CORS_ORIGINS")),
		PostgresHost:           v.GetString("POSTGRES_HOST"),
		PostgresPort:           v.GetInt("POSTGRES_PORT"),
		PostgresUser:           v.GetString("POSTGRES_USER"),
		PostgresPassword:       v.GetString("POSTGRES_PASSWORD"),
		PostgresDatabase:       v.GetString("POSTGRES_DATABASE_NAME"),
		RedisHost:              v.GetString("REDIS_DATABASE_HOST"),
		RedisPort:              v.GetInt("REDIS_DATABASE_PORT"),
		NATSURL:                v.GetString("NATS_URL"),
		InMemoryDispatcher:     v.GetBool("ENABLE_IN_MEMORY_TASK_BROKER"),
		S3Endpoint:             v.GetString("S3_ENDPOINT"),
		S3AccessKey:            v.GetString("AWS_ACCESS_KEY_ID"),
		S3SecretKey:            v.GetString("AWS_SECRET_ACCESS_KEY"),
		S3Region:               v.GetString("S3_REGION"),
		S3UseSSL:               v.GetBool("S3_USE_SSL"),
		EmulatedS3URL:          v.GetString("EMULATED_S3_URL"),
		MaxUploadFileSizeBytes: v.GetInt64("MAX_UPLOAD_FILE_SIZE_BYTES"),
		SweeperGrace:           time.Duration(v.GetInt("SWEEPER_GRACE_SECONDS")) * time.Second,
		OTELEndpoint:           v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if vaultAddr := v.GetString("VAULT_ADDR"); vaultAddr != "" {
		if err := cfg.overlayVault(vaultAddr, v.GetString("VAULT_TOKEN"), v.GetString("VAULT_SECRET_PATH")); err != nil {
			return nil, fmt.Errorf("vault overlay: %w", err)
		}
	}

	return cfg, nil
}

// PostgresDSN renders the pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDatabase)
}

// RedisAddr renders the host:port pair for the document store client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func parseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
