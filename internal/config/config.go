package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally seeded from a .env file.
// Tags carry the full variable name; envconfig retries the bare tag when the
// prefixed key is missing, so short tags like USER would leak in.
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Voice   VoiceConfig
	Webhook WebhookConfig
	Session SessionConfig
}

type AppConfig struct {
	Env        string `envconfig:"APP_ENV" default:"local"`
	Port       int    `envconfig:"APP_PORT" default:"8080"`
	LogLevel   string `envconfig:"APP_LOG_LEVEL" default:"info"`
	HSTSMaxAge int    `envconfig:"APP_HSTS_MAX_AGE" default:"31536000"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME"`

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string `envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type AuthConfig struct {
	JWTSecret      string        `envconfig:"AUTH_JWT_SECRET"`
	JWTIssuer      string        `envconfig:"AUTH_JWT_ISSUER"`
	JWTAudience    string        `envconfig:"AUTH_JWT_AUDIENCE"`
	AccessTokenTTL time.Duration `envconfig:"AUTH_ACCESS_TTL" default:"15m"`
}

// VoiceConfig configures the hosted voice provider.
type VoiceConfig struct {
	BaseURL        string        `envconfig:"VOICE_BASE_URL" default:"https://api.vapi.ai"`
	APIKey         string        `envconfig:"VOICE_API_KEY"`
	AssistantID    string        `envconfig:"VOICE_ASSISTANT_ID"`
	WebhookSecret  string        `envconfig:"VOICE_WEBHOOK_SECRET"`
	RequestTimeout time.Duration `envconfig:"VOICE_REQUEST_TIMEOUT" default:"10s"`
}

type WebhookConfig struct {
	// AuthSecret is the svix signing secret ("whsec_...") of the auth provider.
	AuthSecret string `envconfig:"WEBHOOK_AUTH_SECRET"`
}

type SessionConfig struct {
	ConnectTimeout  time.Duration `envconfig:"SESSION_CONNECT_TIMEOUT" default:"30s"`
	EndTimeout      time.Duration `envconfig:"SESSION_END_TIMEOUT" default:"10s"`
	SpeakingTimeout time.Duration `envconfig:"SESSION_SPEAKING_TIMEOUT" default:"3s"`
	LockTTL         time.Duration `envconfig:"SESSION_LOCK_TTL" default:"2h"`
}

// Load reads .env (if present) and the process environment, then validates.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading .env failed", "err", err)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills environment-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	c.App.Env = strings.TrimSpace(c.App.Env)
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Voice.AssistantID == "" {
		errs = append(errs, errors.New("VOICE_ASSISTANT_ID is required"))
	}
	if c.Voice.APIKey == "" {
		errs = append(errs, errors.New("VOICE_API_KEY is required"))
	}
	if c.Voice.RequestTimeout <= 0 {
		c.Voice.RequestTimeout = 10 * time.Second
	}

	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("AUTH_JWT_ISSUER is required in production"))
		}
		if c.Voice.WebhookSecret == "" {
			errs = append(errs, errors.New("VOICE_WEBHOOK_SECRET is required in production"))
		}
		if c.Webhook.AuthSecret == "" {
			errs = append(errs, errors.New("WEBHOOK_AUTH_SECRET is required in production"))
		}
	}

	if c.Session.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("SESSION_CONNECT_TIMEOUT must not be negative, got %s", c.Session.ConnectTimeout))
	}
	if c.Session.SpeakingTimeout <= 0 {
		c.Session.SpeakingTimeout = 3 * time.Second
	}
	if c.Session.LockTTL <= 0 {
		c.Session.LockTTL = 2 * time.Hour
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
