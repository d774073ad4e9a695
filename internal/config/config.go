// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

// Package config loads and validates service configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, in ascending precedence.
package config

import (
	"fmt"
	"time"

	"github.com/coursecompass/coursecompass/internal/usage"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	KV       KVConfig       `koanf:"kv"`
	Content  ContentConfig  `koanf:"content"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// SecurityConfig holds the admin-surface secrets and CORS policy.
type SecurityConfig struct {
	// CronSecret authorizes the scheduler that triggers aggregation runs.
	CronSecret string `koanf:"cron_secret"`

	// AdminToken authorizes operator endpoints (debug, reconciliation).
	AdminToken string `koanf:"admin_token"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// MetricsConfig tunes the usage-tracking domain.
type MetricsConfig struct {
	// VisitorRateCeiling is the per-identity hourly cap on visit tracking.
	VisitorRateCeiling int `koanf:"visitor_rate_ceiling"`

	// AssessmentRateCeiling is the stricter per-identity hourly cap on
	// assessment tracking.
	AssessmentRateCeiling int `koanf:"assessment_rate_ceiling"`

	// PlatformStats are the static figures attached to the public payload.
	PlatformStats usage.PlatformStats `koanf:"platform_stats"`
}

// KVConfig controls the embedded key-value store.
type KVConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// ContentConfig controls the optional content database used for
// reconciliation.
type ContentConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			CronSecret:  "",
			AdminToken:  "",
			CORSOrigins: []string{"*"},
		},
		Metrics: MetricsConfig{
			VisitorRateCeiling:    100,
			AssessmentRateCeiling: 10,
			PlatformStats: usage.PlatformStats{
				Universities: 191,
				Courses:      153,
				Continents:   3,
			},
		},
		KV: KVConfig{
			Path:       "/data/usage",
			InMemory:   false,
			GCInterval: 10 * time.Minute,
		},
		Content: ContentConfig{
			Enabled: false,
			Path:    "/data/content.duckdb",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Metrics.VisitorRateCeiling <= 0 {
		return fmt.Errorf("metrics.visitor_rate_ceiling must be positive")
	}
	if c.Metrics.AssessmentRateCeiling <= 0 {
		return fmt.Errorf("metrics.assessment_rate_ceiling must be positive")
	}
	if !c.KV.InMemory && c.KV.Path == "" {
		return fmt.Errorf("kv.path required when kv.in_memory is false")
	}
	if c.Content.Enabled && c.Content.Path == "" {
		return fmt.Errorf("content.path required when content.enabled is true")
	}
	if c.IsProduction() {
		// The admin surface must not run open in production. Development
		// skips this so local runs need no secrets.
		if c.Security.CronSecret == "" {
			return fmt.Errorf("security.cron_secret required in production")
		}
		if c.Security.AdminToken == "" {
			return fmt.Errorf("security.admin_token required in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
