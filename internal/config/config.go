package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	LockBackendSQLite = "sqlite"
	LockBackendRedis  = "redis"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBDriver string     `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/huntgate.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	TokenSecret string        `env:"TOKEN_SECRET,required,unset"`
	LockTTL     time.Duration `env:"LOCK_TTL" envDefault:"6h"`

	LockBackend       string        `env:"LOCK_BACKEND" envDefault:"sqlite"`
	RedisURL          string        `env:"REDIS_URL"`
	LockSweepInterval time.Duration `env:"LOCK_SWEEP_INTERVAL" envDefault:"10m"`

	// AdminKeyHash is a bcrypt hash of the admin API key.
	AdminKeyHash string `env:"ADMIN_KEY_HASH"`
	SeedDemo     bool   `env:"SEED_DEMO" envDefault:"false"`
}

func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if len(c.TokenSecret) < 32 {
		errs = append(errs, errors.New("TOKEN_SECRET must be at least 32 bytes"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("LOCK_TTL must be positive, got %s", c.LockTTL))
	}
	if c.LockSweepInterval < 0 {
		errs = append(errs, fmt.Errorf("LOCK_SWEEP_INTERVAL must not be negative, got %s", c.LockSweepInterval))
	}
	switch c.DBDriver {
	case "sqlite", "libsql":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or libsql, got %q", c.DBDriver))
	}
	switch c.LockBackend {
	case LockBackendSQLite:
	case LockBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when LOCK_BACKEND is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCK_BACKEND must be sqlite or redis, got %q", c.LockBackend))
	}
	return errors.Join(errs...)
}
