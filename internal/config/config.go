// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis address for the MFA code store (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "investaccred-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "investaccred-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime; sessions expire with it (e.g. "336h" = 14d).
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// JWTMFATTL is the MFA continuation token lifetime (e.g. "10m").
	JWTMFATTL string `mapstructure:"JWT_MFA_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SMSLocalAPIKey is the API key for the SMS gateway used for MFA codes.
	SMSLocalAPIKey string `mapstructure:"SMS_LOCAL_API_KEY"`
	// SMSLocalSender is the optional sender ID for the SMS gateway.
	SMSLocalSender string `mapstructure:"SMS_LOCAL_SENDER"`
	// SMSLocalBaseURL is the SMS gateway API base URL.
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`
	// EmailAPIKey is the API key for the transactional email provider.
	EmailAPIKey string `mapstructure:"EMAIL_API_KEY"`
	// EmailBaseURL is the email provider API base URL; empty disables real delivery.
	EmailBaseURL string `mapstructure:"EMAIL_BASE_URL"`
	// EmailFrom is the sender address for platform emails.
	EmailFrom string `mapstructure:"EMAIL_FROM"`
	// TOTPIssuer is the issuer label in authenticator provisioning URIs.
	TOTPIssuer string `mapstructure:"TOTP_ISSUER"`
	// ActivityKafkaBrokers is a comma-separated list of Kafka brokers for the activity event stream; empty disables it.
	ActivityKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ActivityKafkaTopic is the Kafka topic for activity events.
	ActivityKafkaTopic string `mapstructure:"ACTIVITY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_ISSUER", "investaccred-auth")
	v.SetDefault("JWT_AUDIENCE", "investaccred-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "336h") // 14d
	v.SetDefault("JWT_MFA_TTL", "10m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("EMAIL_BASE_URL", "")
	v.SetDefault("EMAIL_FROM", "no-reply@investaccred.example")
	v.SetDefault("TOTP_ISSUER", "InvestAccred")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACTIVITY_KAFKA_TOPIC", "investaccred-activity")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 336h (14 days) if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 336 * time.Hour
	}
	return d
}

// MFATTL parses JWTMFATTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) MFATTL() time.Duration {
	d, err := time.ParseDuration(c.JWTMFATTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// KafkaBrokers splits ActivityKafkaBrokers on commas, trimming whitespace. Returns nil when unset.
func (c *Config) KafkaBrokers() []string {
	raw := strings.TrimSpace(c.ActivityKafkaBrokers)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
