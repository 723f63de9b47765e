// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the server reads at startup.
//
// Environment variables carry no envconfig defaults on purpose: an unset
// variable must leave the YAML value alone.
type Config struct {
	HTTPAddr   string `yaml:"http_addr" envconfig:"HTTP_ADDR"`
	DBPath     string `yaml:"db_path" envconfig:"DB_PATH"`
	StaticPath string `yaml:"static_path" envconfig:"STATIC_PATH"`

	JWTSecret string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`

	// Admins are usernames allowed to delete any deal.
	Admins []string `yaml:"admins" envconfig:"ADMINS"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`

	// SeedDemo inserts the demo users and thread into an empty database on startup.
	SeedDemo bool `yaml:"seed_demo" envconfig:"SEED_DEMO"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr:   ":8080",
		DBPath:     "./data/pledgeboard.db",
		StaticPath: "./web/static",
		TokenTTL:   24 * time.Hour,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load builds the configuration. path may be empty; a non-empty path must
// point at a readable YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	for i, name := range cfg.Admins {
		cfg.Admins[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return cfg, nil
}

// Validate checks the settings needed to serve traffic.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt_secret must be at least 16 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// IsAdmin reports whether username is listed as an administrator.
func (c Config) IsAdmin(username string) bool {
	return username != "" && slices.Contains(c.Admins, strings.ToLower(username))
}
