package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// minProductionPassword is the shortest secret accepted when APP_ENV=production.
const minProductionPassword = 12

var (
	errEmpty      = errors.New("must not be empty")
	errWhitespace = errors.New("must not contain whitespace")
)

// checkPort accepts a decimal TCP port in 1..65535.
func checkPort(label, port string) error {
	n, err := strconv.Atoi(port)
	switch {
	case port == "":
		return fmt.Errorf("%s port %w", label, errEmpty)
	case err != nil:
		return fmt.Errorf("%s port %q is not a number", label, port)
	case n < 1 || n > 65535:
		return fmt.Errorf("%s port %d is out of range 1-65535", label, n)
	}
	return nil
}

// checkToken accepts a non-empty value with no surrounding whitespace.
func checkToken(label, value string) error {
	if value == "" {
		return fmt.Errorf("%s %w", label, errEmpty)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s %w", label, errWhitespace)
	}
	return nil
}

// checkSecret enforces the production password length.
func checkSecret(label, secret, environment string) error {
	if environment == EnvironmentProduction && len(secret) < minProductionPassword {
		return fmt.Errorf("%s password must be at least %d characters in production", label, minProductionPassword)
	}
	return nil
}

var verifiedSSLModes = []string{"require", "verify-ca", "verify-full"}

func isVerifiedSSLMode(mode string) bool {
	return slices.Contains(verifiedSSLModes, mode)
}

// parseServiceURL parses raw and requires one of schemes plus a host.
func parseServiceURL(raw string, schemes ...string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return nil, fmt.Errorf("scheme %q not in %s", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Host == "" {
		return nil, errors.New("URL has no host")
	}
	return u, nil
}
