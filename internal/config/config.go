// Package config loads runtime configuration from a YAML file, an optional
// .env file and SARESARI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SARESARI"

// DefaultConfigName is searched for in the working directory when no
// config file is given.
const DefaultConfigName = "saresari"

// Config is the runtime configuration.
type Config struct {
	Database struct {
		Path          string        `mapstructure:"path"`
		BusyTimeout   time.Duration `mapstructure:"busy_timeout"`
		RetryAttempts int           `mapstructure:"retry_attempts"`
		RetryDelay    time.Duration `mapstructure:"retry_delay"`
	} `mapstructure:"database"`

	Settings struct {
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"settings"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var defaults = map[string]any{
	"database.path":           "saresari.db",
	"database.busy_timeout":   store.DefaultBusyTimeout,
	"database.retry_attempts": store.DefaultMaxAttempts,
	"database.retry_delay":    store.DefaultRetryDelay,
	"settings.write_timeout":  5 * time.Second,
	"log.level":               "info",
	"log.format":              "text",
}

// Load reads configuration. Precedence, highest first: environment,
// dotenv files, the config file, built-in defaults.
//
// An empty path searches ./saresari.yaml and tolerates its absence. Missing
// dotenv files are ignored; with none given ./.env is tried.
func Load(path string, dotenv ...string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyDotenv(v, dotenv); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDotenv copies SARESARI_* entries from dotenv files into v without
// touching the process environment. Real environment variables still win.
func applyDotenv(v *viper.Viper, files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	vars, err := godotenv.Read(present...)
	if err != nil {
		return fmt.Errorf("read dotenv: %w", err)
	}
	for key := range defaults {
		name := EnvName(key)
		val, ok := vars[name]
		if !ok {
			continue
		}
		if _, inEnv := os.LookupEnv(name); inEnv {
			continue
		}
		v.Set(key, val)
	}
	return nil
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.RetryAttempts < 1 {
		return fmt.Errorf("database.retry_attempts must be at least 1, got %d", c.Database.RetryAttempts)
	}
	if c.Database.BusyTimeout < 0 || c.Database.RetryDelay < 0 || c.Settings.WriteTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Store returns the connection manager configuration.
func (c Config) Store() store.Config {
	return store.Config{
		BusyTimeout: c.Database.BusyTimeout,
		MaxAttempts: c.Database.RetryAttempts,
		RetryDelay:  c.Database.RetryDelay,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
