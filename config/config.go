// Package config loads YAML server configuration for the apisrv server.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rinne/apisrv/srv"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the YAML server configuration.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr"`

	// MaxBodyBytes caps the accumulated request body size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// BodyReadTimeout bounds the body read phase.
	BodyReadTimeout Duration `yaml:"body_read_timeout"`

	// PrettyPrint indents JSON responses.
	PrettyPrint bool `yaml:"pretty_print"`

	// NoCache adds cache-suppression headers to JSON responses.
	NoCache bool `yaml:"no_cache"`

	// MaxConns caps concurrent connections. Zero means unlimited.
	MaxConns int `yaml:"max_conns"`

	// LogLevel is a logrus level name ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Addr:            ":8080",
		MaxBodyBytes:    srv.DefaultMaxBodyBytes,
		BodyReadTimeout: Duration(srv.DefaultBodyReadTimeout),
		LogLevel:        "info",
	}
}

// Load reads and validates a YAML configuration file, applying defaults
// for unset fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("config: max_body_bytes must not be negative")
	}
	if c.BodyReadTimeout < 0 {
		return fmt.Errorf("config: body_read_timeout must not be negative")
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("config: max_conns must not be negative")
	}
	if _, err := c.ParseLogLevel(); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel parses the configured log level name.
func (c Config) ParseLogLevel() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// Options converts the configuration into server options.
func (c Config) Options() srv.Options {
	return srv.Options{
		MaxBodyBytes:    c.MaxBodyBytes,
		BodyReadTimeout: time.Duration(c.BodyReadTimeout),
		PrettyPrint:     c.PrettyPrint,
		NoCache:         c.NoCache,
		MaxConns:        c.MaxConns,
	}
}
