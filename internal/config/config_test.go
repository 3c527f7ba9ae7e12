package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://localhost:3000"}, parseOrigins("http://localhost:3000"))
	assert.Equal(t,
		[]string{"https://a.example.com", "https://b.example.com"},
		parseOrigins(" https://a.example.com , https://b.example.com "))
	assert.Empty(t, parseOrigins(" , "))
}

func TestPostgresDSN(t *testing.T) {
	c := &Config{
		PostgresUser:     "shopery",
		PostgresPassword: "secret",
		PostgresHost:     "db",
		PostgresPort:     5432,
		PostgresDatabase: "shopery",
	}
	assert.Equal(t, "postgres://shopery:secret@db:5432/shopery", c.PostgresDSN())
}

func TestRedisAddr(t *testing.T) {
	c := &Config{RedisHost: "cache", RedisPort: 6379}
	assert.Equal(t, "cache:6379", c.RedisAddr())
}

func TestApplySecrets_OverridesOnlyPresentKeys(t *testing.T) {
	c := &Config{
		PostgresUser:     "env-user",
		PostgresPassword: "env-pass",
		NATSURL:          "nats://env:4222",
		S3AccessKey:      "env-access",
	}
	c.applySecrets(map[string]interface{}{
		"POSTGRES_PASSWORD":     "vault-pass",
		"AWS_ACCESS_KEY_ID":     "vault-access",
		"AWS_SECRET_ACCESS_KEY": "vault-secret",
		"NATS_URL":              "",   // empty values never override
		"POSTGRES_USER":         1234, // non-strings are ignored
	})

	assert.Equal(t, "vault-pass", c.PostgresPassword)
	assert.Equal(t, "vault-access", c.S3AccessKey)
	assert.Equal(t, "vault-secret", c.S3SecretKey)
	assert.Equal(t, "nats://env:4222", c.NATSURL)
	assert.Equal(t, "env-user", c.PostgresUser)
}
