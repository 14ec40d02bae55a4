// Package config loads zentask settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "zentask.yaml"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	AI      AIConfig      `yaml:"ai"`
	Tracing TracingConfig `yaml:"tracing"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite | postgres
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `yaml:"dsn"`
}

type AIConfig struct {
	APIKey     string  `yaml:"api_key"`
	Model      string  `yaml:"model"` // empty means the generator's default
	BaseURL    string  `yaml:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

type TracingConfig struct {
	Exporter    string `yaml:"exporter"` // none | stdout | otlp
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 15 * time.Second,
			CORSOrigins:    []string{"*"},
		},
		Log:   LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{Driver: "sqlite", DSN: "data/zentask.db"},
		AI: AIConfig{
			RatePerSec: 0.5,
			Burst:      3,
		},
		Tracing: TracingConfig{Exporter: "none", ServiceName: "zentask"},
	}
}

// Load reads path on top of the defaults, then applies env overrides and
// validates. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Log.Format, "LOG_FORMAT")
	set(&cfg.Server.Addr, "ZENTASK_ADDR")
	set(&cfg.Store.Driver, "ZENTASK_STORE_DRIVER")
	set(&cfg.Store.DSN, "ZENTASK_STORE_DSN")
	set(&cfg.AI.APIKey, "GEMINI_API_KEY", "API_KEY")
	set(&cfg.AI.Model, "ZENTASK_AI_MODEL")
	set(&cfg.AI.BaseURL, "ZENTASK_AI_BASE_URL")
	set(&cfg.Tracing.Exporter, "ZENTASK_TRACING_EXPORTER")
	set(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := os.Getenv("ZENTASK_AI_RATE"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ZENTASK_AI_RATE: %w", err)
		}
		cfg.AI.RatePerSec = rps
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Driver) {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch strings.ToLower(c.Tracing.Exporter) {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown tracing.exporter %q", c.Tracing.Exporter))
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
