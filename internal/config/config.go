// Package config loads server and CLI configuration.
//
// Precedence, highest first:
//  1. Environment variables (MEALSPLIT_*, e.g. MEALSPLIT_DATABASE_DRIVER)
//  2. Configuration file (YAML)
//  3. Default values
//
// A .env file in the working directory is loaded into the environment first,
// without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "MEALSPLIT"

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Splits   SplitsConfig   `mapstructure:"splits"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	// RateLimit is the number of RPC requests allowed per client IP per RateWindow.
	// Zero disables rate limiting.
	RateLimit  int           `mapstructure:"rate_limit" validate:"gte=0"`
	RateWindow time.Duration `mapstructure:"rate_window" validate:"gt=0"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `mapstructure:"postgres_dsn" validate:"required_if=Driver postgres"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenDuration time.Duration `mapstructure:"token_duration" validate:"gt=0"`
}

// RedisConfig enables the distributed split lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	LeaseTTL time.Duration `mapstructure:"lease_ttl" validate:"gt=0"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// SplitsConfig tunes the split engine.
type SplitsConfig struct {
	ConflictWindow time.Duration `mapstructure:"conflict_window" validate:"gt=0"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
}

// setDefaults registers every key so environment variables are picked up
// even when no config file mentions them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", time.Minute)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/mealsplit.db")
	v.SetDefault("database.postgres_dsn", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_duration", 24*time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lease_ttl", 10*time.Second)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.token", "")

	v.SetDefault("splits.conflict_window", 4*time.Hour)

	v.SetDefault("logging.level", "info")
}

// Load reads configuration from configPath (optional), the environment and
// defaults, then validates it.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
