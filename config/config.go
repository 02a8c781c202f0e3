// Package config loads reabind's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Transports the CLI knows how to build.
const (
	TransportLoopback = "loopback"
	TransportTCP      = "tcp"
	TransportStdio    = "stdio"
	TransportRedis    = "redis"
)

// Ext state drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds client and server settings.
type Config struct {
	Transport string         `yaml:"transport"`
	Address   string         `yaml:"address"`
	Timeout   time.Duration  `yaml:"timeout"`
	Log       LogConfig      `yaml:"log"`
	Redis     RedisConfig    `yaml:"redis"`
	ExtState  ExtStateConfig `yaml:"extstate"`
	Host      HostConfig     `yaml:"host"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" | "console"
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type ExtStateConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn,omitempty"`
}

// HostConfig constrains the host a client accepts.
type HostConfig struct {
	MinVersion string `yaml:"min_version,omitempty"` // semver constraint, e.g. ">= 6.0"
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	return &Config{
		Transport: TransportTCP,
		Address:   "127.0.0.1:2306",
		Timeout:   10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "reabind",
		},
		ExtState: ExtStateConfig{Driver: DriverMemory},
	}
}

// Load reads the YAML file at path over the defaults. Fields the file does
// not set keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv applies REABIND_* environment overrides to cfg.
func FromEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	str("REABIND_TRANSPORT", &cfg.Transport)
	str("REABIND_ADDRESS", &cfg.Address)
	str("REABIND_LOG_LEVEL", &cfg.Log.Level)
	str("REABIND_LOG_FORMAT", &cfg.Log.Format)
	str("REABIND_REDIS_ADDR", &cfg.Redis.Addr)
	str("REABIND_REDIS_PASSWORD", &cfg.Redis.Password)
	str("REABIND_REDIS_PREFIX", &cfg.Redis.Prefix)
	str("REABIND_EXTSTATE_DRIVER", &cfg.ExtState.Driver)
	str("REABIND_EXTSTATE_DSN", &cfg.ExtState.DSN)
	str("REABIND_HOST_MIN_VERSION", &cfg.Host.MinVersion)

	if v := os.Getenv("REABIND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REABIND_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("REABIND_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REABIND_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	return cfg.Validate()
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportLoopback, TransportTCP, TransportStdio, TransportRedis:
	default:
		return fmt.Errorf("unknown transport %q (expected loopback, tcp, stdio or redis)", c.Transport)
	}
	switch c.ExtState.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.ExtState.DSN == "" {
			return fmt.Errorf("extstate driver sqlite needs a dsn")
		}
	default:
		return fmt.Errorf("unknown extstate driver %q (expected memory or sqlite)", c.ExtState.Driver)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
