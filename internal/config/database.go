package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// maxIdentifierLen is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLen = 63

// DatabaseConfig holds the PostgreSQL connection and pool settings.
type DatabaseConfig struct {
	// URL (postgres:// or postgresql://) wins over the individual parts.
	URL      string `envconfig:"URL"`
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT"`
	Name     string `envconfig:"NAME"`
	User     string `envconfig:"USER"`
	Password string `envconfig:"PASSWORD"`

	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string `envconfig:"APPLICATION_NAME" default:"adentity"`

	SSLMode string `envconfig:"SSL_MODE" default:"prefer" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	MaxConns        int           `envconfig:"MAX_CONNS" default:"25" validate:"min=1"`
	MinConns        int           `envconfig:"MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"30m"`
	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"5s"`

	// NewPostgresPool pings up to PingMaxRetries times, doubling PingBackoff.
	PingMaxRetries int           `envconfig:"PING_MAX_RETRIES" default:"5" validate:"min=1"`
	PingBackoff    time.Duration `envconfig:"PING_BACKOFF" default:"2s"`
}

// ConnectionString returns URL if set, otherwise a postgres:// DSN built
// from the parts with sslmode and application_name as query parameters.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	if c.ApplicationName != "" {
		query.Set("application_name", c.ApplicationName)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: query.Encode(),
	}
	return dsn.String()
}

// Validate checks the connection settings. Production additionally requires
// a strong password and a verifying SSL mode when connecting by parts.
func (c *DatabaseConfig) Validate(environment string) error {
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("database min conns (%d) exceed max conns (%d)", c.MinConns, c.MaxConns)
	}

	if c.URL != "" {
		if err := validatePostgresURL(c.URL); err != nil {
			return fmt.Errorf("invalid database URL: %w", err)
		}
		return nil
	}

	if err := checkToken("database host", c.Host); err != nil {
		return err
	}
	if err := checkPort("database", c.Port); err != nil {
		return err
	}
	if err := checkToken("database name", c.Name); err != nil {
		return err
	}
	if len(c.Name) > maxIdentifierLen {
		return fmt.Errorf("database name cannot exceed %d characters", maxIdentifierLen)
	}
	if err := checkToken("database user", c.User); err != nil {
		return err
	}
	if environment != EnvironmentProduction {
		return nil
	}

	if c.Password == "" {
		return errors.New("database password is required in production")
	}
	if err := checkSecret("database", c.Password, environment); err != nil {
		return err
	}
	if !isVerifiedSSLMode(c.SSLMode) {
		return fmt.Errorf("database SSL mode %q is not allowed in production", c.SSLMode)
	}
	return nil
}

// IsConfigured reports whether enough is set to attempt a connection.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.URL != "" || (c.Host != "" && c.Port != "" && c.Name != "" && c.User != "")
}

// validatePostgresURL requires a user and a database name.
func validatePostgresURL(raw string) error {
	parsed, err := parseServiceURL(raw, "postgres", "postgresql")
	if err != nil {
		return err
	}
	if parsed.User.Username() == "" {
		return errors.New("user is required in URL")
	}
	if strings.Trim(parsed.Path, "/") == "" {
		return errors.New("database name is required in URL path")
	}
	return nil
}
