// Package config loads flock configuration from defaults, an optional YAML
// file, an optional .env file and FLOCK_* environment variables, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/flockhq/flock/pkg/logger"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FLOCK_"

// Config is the root configuration.
type Config struct {
	Server       ServerConfig         `yaml:"server" envPrefix:"SERVER_"`
	Database     DatabaseConfig       `yaml:"database" envPrefix:"DATABASE_"`
	Logging      logger.LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Auth         AuthConfig           `yaml:"auth" envPrefix:"AUTH_"`
	RateLimit    RateLimitConfig      `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	CORS         CORSConfig           `yaml:"cors" envPrefix:"CORS_"`
	Redis        RedisConfig          `yaml:"redis" envPrefix:"REDIS_"`
	Jobs         JobsConfig           `yaml:"jobs" envPrefix:"JOBS_"`
	SermonHelper SermonHelperConfig   `yaml:"sermon_helper" envPrefix:"SERMON_HELPER_"`
	Audit        AuditConfig          `yaml:"audit" envPrefix:"AUDIT_"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver          string        `yaml:"driver" env:"DRIVER"`
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"ISSUER"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	// BcryptCost applies to newly hashed passwords.
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	// PlatformToken guards the /platform tenant administration routes.
	PlatformToken string `yaml:"platform_token" env:"PLATFORM_TOKEN"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"ENABLED"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RPS"`
	Burst             int     `yaml:"burst" env:"BURST"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

type JobsConfig struct {
	Enabled              bool   `yaml:"enabled" env:"ENABLED"`
	PrayerExpirySpec     string `yaml:"prayer_expiry_spec" env:"PRAYER_EXPIRY_SPEC"`
	UsagePruneSpec       string `yaml:"usage_prune_spec" env:"USAGE_PRUNE_SPEC"`
	UsageRetentionMonths int    `yaml:"usage_retention_months" env:"USAGE_RETENTION_MONTHS"`
}

type SermonHelperConfig struct {
	// Endpoint, when set, replaces the built-in catalog suggester with an
	// HTTP suggestion service.
	Endpoint     string        `yaml:"endpoint" env:"ENDPOINT"`
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	OutputBudget int           `yaml:"output_budget" env:"OUTPUT_BUDGET"`
}

type AuditConfig struct {
	BufferSize int    `yaml:"buffer_size" env:"BUFFER_SIZE"`
	FilePath   string `yaml:"file_path" env:"FILE_PATH"`
	Persist    bool   `yaml:"persist" env:"PERSIST"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Logging: logger.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Auth: AuthConfig{
			Issuer:     "flock",
			TokenTTL:   12 * time.Hour,
			BcryptCost: 12,
		},
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 20, Burst: 40},
		CORS:      CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Redis:     RedisConfig{CacheTTL: 24 * time.Hour},
		Jobs: JobsConfig{
			Enabled:              true,
			PrayerExpirySpec:     "15 3 * * *",
			UsagePruneSpec:       "30 4 1 * *",
			UsageRetentionMonths: 12,
		},
		SermonHelper: SermonHelperConfig{Timeout: 45 * time.Second, OutputBudget: 600},
		Audit:        AuditConfig{BufferSize: 500},
	}
}

// Load builds the configuration. path may be empty, in which case FLOCK_CONFIG
// is consulted; a missing .env file in the working directory is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is ignored.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}

	switch strings.ToLower(c.Database.Driver) {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			problems = append(problems, "database.dsn is required for the postgres driver")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q unsupported", c.Database.Driver))
	}

	if len(c.Auth.JWTSecret) < 32 {
		problems = append(problems, "auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		problems = append(problems, fmt.Sprintf("auth.bcrypt_cost %d out of range", c.Auth.BcryptCost))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		problems = append(problems, "rate_limit requires positive requests_per_second and burst")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
