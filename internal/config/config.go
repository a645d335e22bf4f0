// Settlement - Order Settlement Core for the BazaarHQ Commerce Platform
// Copyright 2026 BazaarHQ Engineering
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bazaarhq/settlement

// Package config loads and validates the service configuration via Koanf v2
// with layered sources (highest priority wins):
//
//  1. Environment variables (GATEWAY_KEY_SECRET, HTTP_PORT, ...)
//  2. Config file (config.yaml, or CONFIG_PATH)
//  3. Built-in defaults
package config

import "time"

// Config is the root configuration for the settlement service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Orders   OrdersConfig   `koanf:"orders"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds BadgerDB settings.
type DatabaseConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// GatewayConfig holds payment-gateway settings. In demo mode no external
// calls are made and signature verification is skipped; use only in
// environments without gateway credentials.
type GatewayConfig struct {
	BaseURL   string        `koanf:"base_url"`
	KeyID     string        `koanf:"key_id"`
	KeySecret string        `koanf:"key_secret"`
	Currency  string        `koanf:"currency"`
	Timeout   time.Duration `koanf:"timeout"`
	DemoMode  bool          `koanf:"demo_mode"`
}

// SecurityConfig holds authentication and HTTP hardening settings.
// AuthMode "none" disables authentication and is for development only.
type SecurityConfig struct {
	AuthMode        string        `koanf:"auth_mode"`
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// NATSConfig holds settings for the notification transport. When disabled,
// order updates flow through an in-process gochannel pub/sub instead.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
}

// OrdersConfig holds settlement-core tunables.
type OrdersConfig struct {
	// PendingTTL is how long an order may sit in payment.status=pending
	// before the sweeper expires it.
	PendingTTL time.Duration `koanf:"pending_ttl"`

	// SweepInterval is how often the pending-order sweeper runs.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
