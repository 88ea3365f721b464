// Package config loads formsync settings from an optional YAML file, an
// optional .env file and FORMSYNC_* environment variables, in that order of
// increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMSYNC_"

// Supported database types for the reference server.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Config is the merged configuration.
type Config struct {
	Debounce time.Duration `yaml:"debounce"`
	MaxWait  time.Duration `yaml:"max_wait"`
	Timeout  time.Duration `yaml:"timeout"`
	Locale   string        `yaml:"locale"`
	BaseURL  string        `yaml:"base_url"`
	LogLevel string        `yaml:"log_level"`
	Server   Server        `yaml:"server"`
}

// Server configures the reference server.
type Server struct {
	Addr         string `yaml:"addr"`
	DatabaseType string `yaml:"database_type"`
	DatabaseURL  string `yaml:"database_url"`
	SurveysFile  string `yaml:"surveys_file"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Debounce: 600 * time.Millisecond,
		MaxWait:  5 * time.Second,
		Timeout:  15 * time.Second,
		Locale:   "en",
		LogLevel: "info",
		Server: Server{
			Addr:         ":3318",
			DatabaseType: DatabaseSQLite,
			DatabaseURL:  "file:formsync.db",
		},
	}
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	envFile string
	lookup  func(string) (string, bool)
}

// WithEnvFile reads variables from path. A missing file is ignored. Pass an
// empty path to skip .env loading.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		if lookup != nil {
			l.lookup = lookup
		}
	}
}

// Load merges defaults, the YAML file at path (skipped when empty), the .env
// file and the process environment, then validates the result.
func Load(path string, options ...Option) (Config, error) {
	l := &loader{envFile: ".env", lookup: os.LookupEnv}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if l.envFile != "" {
		values, err := godotenv.Read(l.envFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := l.lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode strictly unmarshals YAML into cfg; unknown keys are errors.
func Decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	durations := map[string]*time.Duration{
		"DEBOUNCE": &cfg.Debounce,
		"MAX_WAIT": &cfg.MaxWait,
		"TIMEOUT":  &cfg.Timeout,
	}
	for name, target := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*target = d
	}

	strs := map[string]*string{
		"LOCALE":               &cfg.Locale,
		"BASE_URL":             &cfg.BaseURL,
		"LOG_LEVEL":            &cfg.LogLevel,
		"SERVER_ADDR":          &cfg.Server.Addr,
		"SERVER_DATABASE_TYPE": &cfg.Server.DatabaseType,
		"SERVER_DATABASE_URL":  &cfg.Server.DatabaseURL,
		"SERVER_SURVEYS_FILE":  &cfg.Server.SurveysFile,
	}
	for name, target := range strs {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}
	return nil
}

// Validate rejects settings the controller or server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive, got %s", c.Debounce))
	}
	if c.MaxWait < 0 {
		errs = append(errs, fmt.Errorf("max_wait must not be negative, got %s", c.MaxWait))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Server.DatabaseType {
	case DatabaseSQLite, DatabasePostgres:
	default:
		errs = append(errs, fmt.Errorf("server.database_type must be %q or %q, got %q", DatabaseSQLite, DatabasePostgres, c.Server.DatabaseType))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
