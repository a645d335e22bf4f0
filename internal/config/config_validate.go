// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateOrders(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateGateway requires credentials in live mode. Demo mode runs without
// credentials and is intended for development environments only.
func (c *Config) validateGateway() error {
	if c.Gateway.DemoMode {
		return nil
	}
	if c.Gateway.KeyID == "" {
		return fmt.Errorf("GATEWAY_KEY_ID is required when GATEWAY_DEMO_MODE=false")
	}
	if c.Gateway.KeySecret == "" {
		return fmt.Errorf("GATEWAY_KEY_SECRET is required when GATEWAY_DEMO_MODE=false")
	}
	if err := validateHTTPURL(c.Gateway.BaseURL, "GATEWAY_BASE_URL"); err != nil {
		return err
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		// 32+ characters keeps the HMAC keyspace out of brute-force range.
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
		}
	case "none":
		// Development only; the server logs a prominent warning at startup.
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none (got %q)", c.Security.AuthMode)
	}

	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateOrders() error {
	if c.Orders.PendingTTL <= 0 {
		return fmt.Errorf("ORDERS_PENDING_TTL must be positive")
	}
	if c.Orders.SweepInterval <= 0 {
		return fmt.Errorf("ORDERS_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be a valid level, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL validates that a URL uses http or https and has a host.
func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}

// IsDevelopment reports whether the service runs without authentication,
// which is only permitted in development setups.
func (c *Config) IsDevelopment() bool {
	return c.Security.AuthMode == "none"
}
