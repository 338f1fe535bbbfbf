// Package config loads server and CLI settings.
//
// Sources are layered, lowest precedence first: built-in defaults, an optional
// YAML file, NEXORA_ environment variables and finally command-line flags.
// Environment keys use a double underscore between section and key, so
// NEXORA_DATABASE__HOST sets database.host.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/nexora/backend/pkg/constants"
)

const (
	EnvPrefix   = "NEXORA_"
	DefaultFile = "nexora.yaml"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Retry    RetryConfig    `koanf:"retry"`
	Seed     SeedConfig     `koanf:"seed"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// Comma separated; "*" reflects any origin.
	CORSOrigins string `koanf:"cors_origins"`
}

// Origins splits CORSOrigins into trimmed, non-empty entries.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"`
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	Name         string `koanf:"name"`
	Path         string `koanf:"path"` // sqlite file, ":memory:" allowed
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// RedisConfig enables the shared flow cache and save lock when Addr is set.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type AuthConfig struct {
	JWTSecret     string `koanf:"jwt_secret"`
	Disabled      bool   `koanf:"disabled"`
	DefaultTenant string `koanf:"default_tenant"`
}

type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
}

type SeedConfig struct {
	SampleFlow bool `koanf:"sample_flow"`
}

// Defaults returns the built-in values as flat koanf keys.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":             8080,
		"server.shutdown_timeout": "10s",
		"server.cors_origins":     "*",
		"database.driver":         DriverSQLite,
		"database.host":           "127.0.0.1",
		"database.port":           4000,
		"database.user":           "root",
		"database.name":           "nexora",
		"database.path":           "nexora.db",
		"database.max_open_conns": 25,
		"redis.db":                0,
		"redis.cache_ttl":         fmt.Sprintf("%ds", constants.DefaultCacheTTLSec),
		"auth.disabled":           false,
		"auth.default_tenant":     constants.DefaultTenantID,
		"retry.max_attempts":      constants.DefaultRetryAttempts,
		"retry.base_delay":        fmt.Sprintf("%dms", constants.DefaultRetryBaseDelayMs),
		"seed.sample_flow":        true,
	}
}

// LoadDotEnv reads .env from the working directory or its parents. Missing
// files are ignored; variables already set in the environment win.
func LoadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// Load builds a Config. cfgFile may be empty, in which case nexora.yaml is used
// when present. flags may be nil; only flags the user actually set override
// lower layers, and a flag named "db-path" maps to "database.path".
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NEXORA_REDIS__CACHE_TTL -> redis.cache_ttl
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// --db-path -> database.path, --jwt-secret -> auth.jwt_secret
func flagKey(name string) string {
	if section, rest, ok := strings.Cut(name, "-"); ok {
		switch section {
		case "db":
			return "database." + strings.ReplaceAll(rest, "-", "_")
		case "redis", "server", "auth", "retry", "seed":
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	switch name {
	case "jwt-secret":
		return "auth.jwt_secret"
	case "port":
		return "server.port"
	}
	return strings.ReplaceAll(name, "-", "_")
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database.driver %q (want %s or %s)", c.Database.Driver, DriverMySQL, DriverSQLite)
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for the sqlite driver")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// CheckAuth reports a missing signing secret. Only the server and token
// issuing need one.
func (c *Config) CheckAuth() error {
	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required unless auth.disabled is set")
	}
	return nil
}
