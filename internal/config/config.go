// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package config loads server configuration from an optional YAML file
// overlaid with command-line flags. Flags win over the file; both win
// over the built-in defaults.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the serve-time configuration.
type Config struct {
	// HTTPAddr is the game API listen address.
	HTTPAddr string `koanf:"http-addr"`

	// MetricsAddr is the observability listen address. Empty disables it.
	MetricsAddr string `koanf:"metrics-addr"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database-url"`

	// RedisAddr selects the Redis session store when non-empty; sessions
	// fall back to the in-memory store otherwise.
	RedisAddr string `koanf:"redis-addr"`

	// SessionTTL is how long an idle session survives.
	SessionTTL time.Duration `koanf:"session-ttl"`

	// CookieSecure marks the session cookie Secure; disable only for
	// local plain-HTTP development.
	CookieSecure bool `koanf:"cookie-secure"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:     ":8080",
		MetricsAddr:  "127.0.0.1:9100",
		SessionTTL:   24 * time.Hour,
		CookieSecure: true,
		LogFormat:    "json",
	}
}

// Load resolves the configuration from the optional YAML file at path
// and the given flag set. Either may be empty/nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	return cfg, nil
}

// Validate checks the fields serve cannot run without.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http-addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database-url is required")
	}
	if c.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("session-ttl must be positive")
	}
	return nil
}
