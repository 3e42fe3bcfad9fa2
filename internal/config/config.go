// Package config loads the server settings from defaults, a YAML file, .env
// and the process environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "JSONKV_"

// Config holds the server settings.
type Config struct {
	HTTP            string `yaml:"http" env:"HTTP"`
	Store           string `yaml:"store" env:"STORE"`
	LogLevel        string `yaml:"log_level" env:"LOG_LEVEL"`
	History         bool   `yaml:"history" env:"HISTORY"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	ReadRatePerMin  int    `yaml:"read_rate_per_min" env:"READ_RATE_PER_MIN"`
	WriteRatePerMin int    `yaml:"write_rate_per_min" env:"WRITE_RATE_PER_MIN"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP:         ":3000",
		Store:        "store.json",
		LogLevel:     "info",
		MaxBodyBytes: 1 << 20,
	}
}

// LoadFile overlays the YAML file at path on cfg. Keys absent from the file
// keep their current value; unknown keys are an error.
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the -config flag
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv parses the .env file in dir. A missing file yields an empty map.
//
// Lines are KEY=value; blank lines and lines starting with # are skipped.
// Double-quoted values are unquoted with Go syntax; single quotes are rejected.
func LoadDotEnv(dir string) (map[string]string, error) {
	out := make(map[string]string)
	path := filepath.Join(dir, ".env")
	content, err := os.ReadFile(path) //nolint:gosec // G304: fixed file name
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			return nil, fmt.Errorf("single quotes are not supported in .env: %s", line)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		out[key] = val
	}
	return out, nil
}

// ApplyEnv overlays JSONKV_* variables on cfg. environ is the process
// environment in os.Environ form and wins over dotenv.
func ApplyEnv(cfg *Config, dotenv map[string]string, environ []string) error {
	merged := make(map[string]string, len(dotenv)+len(environ))
	for k, v := range dotenv {
		merged[k] = v
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: merged, Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.HTTP == "" {
		return errors.New("http address is required")
	}
	if c.Store == "" {
		return errors.New("store path is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must not be negative: %d", c.MaxBodyBytes)
	}
	if c.ReadRatePerMin < 0 || c.WriteRatePerMin < 0 {
		return errors.New("rate limits must not be negative")
	}
	return nil
}

// ParseLevel converts a log level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}
