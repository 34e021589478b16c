// Package config loads adentity settings from ADENTITY_* environment
// variables (envconfig) and checks them (validator plus per-section rules).
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvironmentProduction turns on the stricter security checks.
const EnvironmentProduction = "production"

const envPrefix = "ADENTITY"

// Config is the root of every section, as read by both binaries.
type Config struct {
	App           AppConfig           `envconfig:"APP"`
	Server        ServerConfig        `envconfig:"SERVER"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Syncer        SyncerConfig        `envconfig:"SYNCER"`
	Observability ObservabilityConfig `envconfig:"OBSERVABILITY"`
	Context       ContextConfig       `envconfig:"CONTEXT"`
}

// AppConfig is process-wide: identity, logging and shutdown.
type AppConfig struct {
	Name            string        `envconfig:"NAME" default:"adentity"`
	Version         string        `envconfig:"VERSION" default:"dev"`
	Environment     string        `envconfig:"ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// ServerConfig groups the HTTP listeners.
type ServerConfig struct {
	Control ControlPlaneConfig `envconfig:"CONTROL"`
}

// Load processes the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate runs the struct tags first, then each section's own rules in
// order, and returns the first failure.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	env := c.App.Environment
	sections := []struct {
		name  string
		check func() error
	}{
		{"database", func() error {
			// The in-memory store needs no database at all.
			if c.Server.Control.StoreType != StoreTypePostgres {
				return nil
			}
			return c.Database.Validate(env)
		}},
		{"redis", func() error { return c.Redis.Validate(env) }},
		{"control", func() error { return c.Server.Control.Validate(env) }},
		{"observability", c.Observability.Validate},
		{"context", c.Context.Validate},
	}
	for _, s := range sections {
		if err := s.check(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// LogConfig writes a one-line summary with no secrets in it.
func (c *Config) LogConfig(log *slog.Logger) {
	log.Info("configuration loaded",
		slog.Group("app",
			slog.String("name", c.App.Name),
			slog.String("version", c.App.Version),
			slog.String("env", c.App.Environment),
			slog.String("log_level", c.App.LogLevel),
			slog.Duration("shutdown_timeout", c.App.ShutdownTimeout),
		),
		slog.Group("control",
			slog.String("addr", c.Server.Control.Address()),
			slog.String("store", c.Server.Control.StoreType),
			slog.Bool("tls", c.Server.Control.TLSEnabled),
			slog.Bool("auth", c.Server.Control.APIKeyHash != ""),
		),
		slog.String("observability_port", c.Observability.Port),
		slog.Bool("db_configured", c.Database.IsConfigured()),
		slog.Bool("redis_configured", c.Redis.IsConfigured()),
		slog.Bool("syncer_enabled", c.Syncer.Enabled),
		slog.Any("rule_types", c.Context.RuleTypes),
		slog.String("unknown_rule_policy", c.Context.UnknownRulePolicy),
	)
}
