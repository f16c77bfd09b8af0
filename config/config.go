package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcelsud/webhook-engine/webhook/breaker"
	"github.com/marcelsud/webhook-engine/webhook/retry"
	"github.com/marcelsud/webhook-engine/webhook/signature"
	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// WebhookSecrets is a comma-separated list of whsec_ signing secrets;
	// multiple values support rotation
	WebhookSecrets     string        `mapstructure:"WEBHOOK_SECRETS"`
	SignatureTolerance time.Duration `mapstructure:"SIGNATURE_TOLERANCE"`

	ProviderURL    string `mapstructure:"PROVIDER_URL"`
	ProviderAPIKey string `mapstructure:"PROVIDER_API_KEY"`

	BackendURL     string `mapstructure:"BACKEND_URL"`
	BackendAuthURL string `mapstructure:"BACKEND_AUTH_URL"`
	BackendAPIKey  string `mapstructure:"BACKEND_API_KEY"`
	BackendToken   string `mapstructure:"BACKEND_TOKEN"`

	PlansFile string `mapstructure:"PLANS_FILE"`

	MaxAttempts       int           `mapstructure:"MAX_ATTEMPTS"`
	InitialDelay      time.Duration `mapstructure:"INITIAL_DELAY"`
	BackoffMultiplier float64       `mapstructure:"BACKOFF_MULTIPLIER"`
	MaxDelay          time.Duration `mapstructure:"MAX_DELAY"`

	BreakerFailureThreshold int           `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerRecoveryTime     time.Duration `mapstructure:"BREAKER_RECOVERY_TIME"`

	RetentionDays int `mapstructure:"RETENTION_DAYS"`

	AlertWebhookURL string `mapstructure:"ALERT_WEBHOOK_URL"`
	AuditMaxEntries int64  `mapstructure:"AUDIT_MAX_ENTRIES"`
}

func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// The config file is optional; environment variables alone are fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SIGNATURE_TOLERANCE", 5*time.Minute)
	viper.SetDefault("PLANS_FILE", "plans.yaml")
	viper.SetDefault("MAX_ATTEMPTS", retry.DefaultPolicy.MaxAttempts)
	viper.SetDefault("INITIAL_DELAY", retry.DefaultPolicy.InitialDelay)
	viper.SetDefault("BACKOFF_MULTIPLIER", retry.DefaultPolicy.BackoffMultiplier)
	viper.SetDefault("MAX_DELAY", retry.DefaultPolicy.MaxDelay)
	viper.SetDefault("BREAKER_FAILURE_THRESHOLD", breaker.DefaultSettings.FailureThreshold)
	viper.SetDefault("BREAKER_RECOVERY_TIME", breaker.DefaultSettings.RecoveryTime)
	viper.SetDefault("RETENTION_DAYS", 30)
	viper.SetDefault("AUDIT_MAX_ENTRIES", int64(100000))
}

// RetryPolicy assembles the retry executor policy from config
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       c.MaxAttempts,
		InitialDelay:      c.InitialDelay,
		BackoffMultiplier: c.BackoffMultiplier,
		MaxDelay:          c.MaxDelay,
	}
}

// BreakerSettings assembles the circuit breaker settings from config
func (c *Config) BreakerSettings() breaker.Settings {
	return breaker.Settings{
		FailureThreshold: c.BreakerFailureThreshold,
		RecoveryTime:     c.BreakerRecoveryTime,
	}
}

// SignatureSecrets parses the configured signing secrets, oldest last
func (c *Config) SignatureSecrets() ([]signature.Secret, error) {
	raw := strings.Split(c.WebhookSecrets, ",")
	secrets := make([]signature.Secret, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		secret, err := signature.ParseSecret(s)
		if err != nil {
			return nil, fmt.Errorf("parsing webhook secret: %w", err)
		}
		secrets = append(secrets, secret)
	}
	if len(secrets) == 0 {
		return nil, fmt.Errorf("WEBHOOK_SECRETS must hold at least one whsec_ secret")
	}
	return secrets, nil
}

// Retention converts RETENTION_DAYS to the cleanup horizon
func (c *Config) Retention() time.Duration {
	days := c.RetentionDays
	if days < 1 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}
