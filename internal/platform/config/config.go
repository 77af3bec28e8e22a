// Package config loads firmgate configuration from the environment and an
// optional .env file using viper.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/spf13/viper"

	s "firmgate/pkg/string"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process configuration shared by every firmgate binary.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Addr string `mapstructure:"FIRMGATE_ADDR"`
	// BaseURL prefixes onboarding links handed to firms.
	BaseURL string `mapstructure:"BASE_URL"`
	// AdminEmail is the single address granted the Admin role.
	AdminEmail string `mapstructure:"FIRMGATE_ADMIN_EMAIL"`

	TokenTTL time.Duration `mapstructure:"TOKEN_TTL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxOpen   int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdle   int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	Session SessionConfig `mapstructure:",squash"`
	Redis   RedisConfig   `mapstructure:",squash"`
	Kafka   KafkaConfig   `mapstructure:",squash"`

	// WebhookSecret is the svix signing secret of the identity provider.
	// Empty disables POST /webhooks/identity.
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`

	TrustedProxies string  `mapstructure:"TRUSTED_PROXIES"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// OutboxEnabled mirrors every audit entry into audit_outbox for the relay.
	OutboxEnabled bool `mapstructure:"AUDIT_OUTBOX_ENABLED"`

	OTelEnabled bool `mapstructure:"OTEL_ENABLED"`

	// RequireEmailVerification makes the dev identity provider send a
	// verification code before completing an account.
	RequireEmailVerification bool `mapstructure:"REQUIRE_EMAIL_VERIFICATION"`
}

// SessionConfig configures the HS256 session tokens carrying the principal email.
type SessionConfig struct {
	SigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	Issuer     string        `mapstructure:"SESSION_ISSUER"`
	Audience   string        `mapstructure:"SESSION_AUDIENCE"`
	TTL        time.Duration `mapstructure:"SESSION_TTL"`
}

// RedisConfig configures the optional Redis client used for webhook dedupe.
type RedisConfig struct {
	URL          string        `mapstructure:"REDIS_URL"`
	PoolSize     int           `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConns int           `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `mapstructure:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `mapstructure:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"REDIS_WRITE_TIMEOUT"`
}

// KafkaConfig configures the audit relay.
type KafkaConfig struct {
	Brokers    string        `mapstructure:"KAFKA_BROKERS"`
	AuditTopic string        `mapstructure:"AUDIT_TOPIC"`
	BatchSize  int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	PollEvery  time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
}

const devSigningKey = "dev-session-key-change-me-0123456789"

var defaults = map[string]any{
	"APP_ENV":              EnvDevelopment,
	"FIRMGATE_ADDR":        ":8080",
	"BASE_URL":             "http://localhost:8080",
	"FIRMGATE_ADMIN_EMAIL": "",
	"TOKEN_TTL":            "24h",
	"DATABASE_URL":         "",
	"DB_MAX_OPEN_CONNS":    25,
	"DB_MAX_IDLE_CONNS":    5,
	"SESSION_SIGNING_KEY":  "",
	"SESSION_ISSUER":       "firmgate",
	"SESSION_AUDIENCE":     "firmgate-api",
	"SESSION_TTL":          "8h",
	"REDIS_URL":            "",
	"REDIS_POOL_SIZE":      10,
	"REDIS_MIN_IDLE_CONNS": 2,
	"REDIS_DIAL_TIMEOUT":   "5s",
	"REDIS_READ_TIMEOUT":   "3s",
	"REDIS_WRITE_TIMEOUT":  "3s",
	"KAFKA_BROKERS":        "",
	"AUDIT_TOPIC":          "firmgate.audit",
	"OUTBOX_BATCH_SIZE":    100,
	"OUTBOX_POLL_INTERVAL": "1s",
	"WEBHOOK_SECRET":       "",
	"TRUSTED_PROXIES":      "",
	"RATE_LIMIT_RPS":       5.0,
	"RATE_LIMIT_BURST":     10,
	"AUDIT_OUTBOX_ENABLED": false,
	"OTEL_ENABLED":         false,

	"REQUIRE_EMAIL_VERIFICATION": true,
}

// Load reads .env (if present), then the environment. Environment variables
// win over .env. Every key must have a default for AutomaticEnv to bind it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() //nolint:errcheck // missing .env is fine

	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.AdminEmail = strings.TrimSpace(c.AdminEmail)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.Addr == "" {
		return errors.New("config: FIRMGATE_ADDR must be set")
	}
	if c.AdminEmail == "" {
		return errors.New("config: FIRMGATE_ADMIN_EMAIL must be set")
	}
	if _, err := mail.ParseAddress(c.AdminEmail); err != nil {
		return fmt.Errorf("config: FIRMGATE_ADMIN_EMAIL is not an email address: %w", err)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: SESSION_TTL must be positive")
	}
	if c.Session.SigningKey == "" {
		if c.Env == EnvProduction {
			return errors.New("config: SESSION_SIGNING_KEY must be set when APP_ENV=production")
		}
		c.Session.SigningKey = devSigningKey
	}
	if len(c.Session.SigningKey) < 32 {
		return errors.New("config: SESSION_SIGNING_KEY must be at least 32 bytes")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.OutboxEnabled && c.DatabaseURL == "" {
		return errors.New("config: AUDIT_OUTBOX_ENABLED requires DATABASE_URL")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// KafkaBrokerList splits the comma-separated broker list.
func (c *Config) KafkaBrokerList() []string {
	return splitList(c.Kafka.Brokers)
}

// TrustedProxyList splits the comma-separated proxy CIDR list.
func (c *Config) TrustedProxyList() []string {
	return splitList(c.TrustedProxies)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return s.DedupeAndTrim(strings.Split(raw, ","))
}
