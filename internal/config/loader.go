package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "GYMADMIN"

// developmentSecret signs tokens outside production when no secret is set.
const developmentSecret = "gymadmin-development-secret"

// Config captures configuration for the gym admin process.
type Config struct {
	Environment string           `mapstructure:"environment"`
	Log         LogConfig        `mapstructure:"log"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Simulation  SimulationConfig `mapstructure:"simulation"`
	Client      ClientConfig     `mapstructure:"client"`
	Keeper      KeeperConfig     `mapstructure:"keeper"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type AuthConfig struct {
	Policy             string        `mapstructure:"policy"`
	AccessTTL          time.Duration `mapstructure:"access_ttl"`
	SigningSecret      string        `mapstructure:"signing_secret"`
	RotateRefreshToken bool          `mapstructure:"rotate_refresh_token"`
}

type SimulationConfig struct {
	LatencyScale      float64 `mapstructure:"latency_scale"`
	MemberFailureRate float64 `mapstructure:"member_failure_rate"`
	PlanFailureRate   float64 `mapstructure:"plan_failure_rate"`
	Seed              uint64  `mapstructure:"seed"`
}

type ClientConfig struct {
	BulkConcurrency int `mapstructure:"bulk_concurrency"`
}

type KeeperConfig struct {
	Schedule      string        `mapstructure:"schedule"`
	RefreshWindow time.Duration `mapstructure:"refresh_window"`
}

// Load reads an optional .env file, an optional gymadmin.yaml from the
// working directory and GYMADMIN_* environment variables, in increasing
// precedence, on top of defaults.
//
// Every missing or invalid entry is collected and reported in one error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("gymadmin")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("configuration values are invalid: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite.dsn", "gymadmin.db")
	v.SetDefault("storage.redis.addr", "127.0.0.1:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "gymadmin:")
	v.SetDefault("storage.breaker.max_failures", 3)
	v.SetDefault("storage.breaker.open_timeout", "10s")

	v.SetDefault("auth.policy", "open")
	v.SetDefault("auth.access_ttl", "1h")
	v.SetDefault("auth.signing_secret", "")
	v.SetDefault("auth.rotate_refresh_token", false)

	v.SetDefault("simulation.latency_scale", 1.0)
	v.SetDefault("simulation.member_failure_rate", 0.1)
	v.SetDefault("simulation.plan_failure_rate", 0.0)
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("client.bulk_concurrency", 4)

	v.SetDefault("keeper.schedule", "@every 1m")
	v.SetDefault("keeper.refresh_window", "5m")
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "log.level")
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format != "text" && c.Log.Format != "json" {
		invalid = append(invalid, "log.format")
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "sqlite":
		if strings.TrimSpace(c.Storage.SQLite.DSN) == "" {
			missing = append(missing, "storage.sqlite.dsn")
		}
	case "redis":
		if strings.TrimSpace(c.Storage.Redis.Addr) == "" {
			missing = append(missing, "storage.redis.addr")
		}
	case "memory":
	default:
		invalid = append(invalid, "storage.backend")
	}
	if c.Storage.Breaker.MaxFailures == 0 {
		invalid = append(invalid, "storage.breaker.max_failures")
	}
	if c.Storage.Breaker.OpenTimeout <= 0 {
		invalid = append(invalid, "storage.breaker.open_timeout")
	}

	c.Auth.Policy = strings.ToLower(strings.TrimSpace(c.Auth.Policy))
	if c.Auth.Policy != "open" && c.Auth.Policy != "directory" {
		invalid = append(invalid, "auth.policy")
	}
	if c.Auth.AccessTTL <= 0 {
		invalid = append(invalid, "auth.access_ttl")
	}
	if strings.TrimSpace(c.Auth.SigningSecret) == "" {
		if c.IsProduction() {
			missing = append(missing, "auth.signing_secret")
		} else {
			c.Auth.SigningSecret = developmentSecret
		}
	}

	if c.Simulation.LatencyScale < 0 {
		invalid = append(invalid, "simulation.latency_scale")
	}
	if c.Simulation.MemberFailureRate < 0 || c.Simulation.MemberFailureRate > 1 {
		invalid = append(invalid, "simulation.member_failure_rate")
	}
	if c.Simulation.PlanFailureRate < 0 || c.Simulation.PlanFailureRate > 1 {
		invalid = append(invalid, "simulation.plan_failure_rate")
	}

	if c.Client.BulkConcurrency < 1 {
		invalid = append(invalid, "client.bulk_concurrency")
	}
	if strings.TrimSpace(c.Keeper.Schedule) == "" {
		missing = append(missing, "keeper.schedule")
	}
	if c.Keeper.RefreshWindow < 0 {
		invalid = append(invalid, "keeper.refresh_window")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required configuration is missing: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", "))
	}
	return nil
}
