// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority
// order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/coursecompass/config.yaml",
	"/etc/coursecompass/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// CORS origins arrive from the environment as one comma-separated
	// string; split them back into a slice before unmarshaling.
	if raw := k.String("security.cors_origins"); raw != "" && strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set("security.cors_origins", parts); err != nil {
			return nil, fmt.Errorf("process cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so unrelated environment noise cannot
// reach the configuration tree.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"HTTP_HOST":      "server.host",
		"HTTP_PORT":      "server.port",
		"SERVER_TIMEOUT": "server.timeout",
		"ENVIRONMENT":    "server.environment",

		"CRON_SECRET":  "security.cron_secret",
		"ADMIN_TOKEN":  "security.admin_token",
		"CORS_ORIGINS": "security.cors_origins",

		"VISITOR_RATE_CEILING":    "metrics.visitor_rate_ceiling",
		"ASSESSMENT_RATE_CEILING": "metrics.assessment_rate_ceiling",
		"PLATFORM_UNIVERSITIES":   "metrics.platform_stats.universities",
		"PLATFORM_COURSES":        "metrics.platform_stats.courses",
		"PLATFORM_CONTINENTS":     "metrics.platform_stats.continents",

		"KV_PATH":        "kv.path",
		"KV_IN_MEMORY":   "kv.in_memory",
		"KV_GC_INTERVAL": "kv.gc_interval",

		"CONTENT_DB_ENABLED": "content.enabled",
		"CONTENT_DB_PATH":    "content.path",

		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",
	}
	return mappings[key]
}
