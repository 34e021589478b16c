package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"
)

// Supported persistence backends for the control plane.
const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

// ControlPlaneConfig configures the admin REST API server.
type ControlPlaneConfig struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	Host              string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout       time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout      time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	IdleTimeout       time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes    int           `envconfig:"MAX_HEADER_BYTES" default:"524288" validate:"min=1"` // 512KB

	// StoreType selects the persistence backend. "memory" is meant for local development.
	StoreType string `envconfig:"STORE_TYPE" default:"postgres" validate:"oneof=postgres memory"`

	// RateLimitPerMinute caps requests per client IP on /api/v1. Zero disables the limiter.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300" validate:"min=0"`

	// Security
	APIKeyHash string `envconfig:"API_KEY_HASH"`
	TLSEnabled bool   `envconfig:"TLS_ENABLED" default:"false"`
	TLSCert    string `envconfig:"TLS_CERT_FILE"`
	TLSKey     string `envconfig:"TLS_KEY_FILE"`
}

// Address is the listen address for the HTTP server.
func (c *ControlPlaneConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate checks the listener and auth settings. Production requires an
// API key hash, TLS and the postgres store.
func (c *ControlPlaneConfig) Validate(environment string) error {
	if err := checkPort("control plane", c.Port); err != nil {
		return err
	}
	if err := checkToken("control plane host", c.Host); err != nil {
		return err
	}
	if c.APIKeyHash != "" && !isSHA256Hex(c.APIKeyHash) {
		return fmt.Errorf("API key hash must be %d hex characters", sha256.Size*2)
	}
	if c.TLSEnabled && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("TLS enabled but cert or key file not specified")
	}
	if environment != EnvironmentProduction {
		return nil
	}

	switch {
	case c.APIKeyHash == "":
		return errors.New("API key hash is required in production")
	case !c.TLSEnabled:
		return errors.New("TLS must be enabled in production")
	case c.StoreType == StoreTypeMemory:
		return errors.New("memory store is not allowed in production")
	}
	return nil
}

func isSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
