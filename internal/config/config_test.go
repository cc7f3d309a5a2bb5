package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "tutor"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Voice: VoiceConfig{APIKey: "key", AssistantID: "asst_1"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST is required")
	assert.Contains(t, err.Error(), "VOICE_ASSISTANT_ID is required")
}

func TestValidate_ProductionRequiresSecrets(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_SSLMODE is required in production")
	assert.Contains(t, err.Error(), "WEBHOOK_AUTH_SECRET is required in production")
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	require.NoError(t, c.Validate())
	assert.Equal(t, "disable", c.DB.SSLMode)
	assert.Equal(t, 15*time.Minute, c.Auth.AccessTokenTTL)
	assert.Equal(t, 3*time.Second, c.Session.SpeakingTimeout)
}

func TestLoad_ReadsPrefixedEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_NAME", "tutor")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("AUTH_JWT_SECRET", "s")
	t.Setenv("VOICE_API_KEY", "k")
	t.Setenv("VOICE_ASSISTANT_ID", "a")
	t.Setenv("SESSION_CONNECT_TIMEOUT", "45s")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.HTTPAddr())
	assert.Equal(t, "cache:6379", c.RedisAddr())
	assert.Equal(t, 45*time.Second, c.Session.ConnectTimeout)
	assert.Equal(t, "https://api.vapi.ai", c.Voice.BaseURL)
}
