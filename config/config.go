// Package config loads application configuration from a YAML file.
//
// Every field has a working default so the server starts with no config
// file at all; a file overrides defaults, and the command line overrides
// the file (see cmd/server).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains SQLite settings. Use ":memory:" for an
// in-memory database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains the demo credential and token settings. This is a
// back-office demo login, not a user-management system: one hard-coded
// operator account.
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	DemoUser           string `yaml:"demo_user"`
	DemoPassword       string `yaml:"demo_password"`
	TokenExpiryMinutes int    `yaml:"token_expiry_minutes"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Path: "./backoffice.db"},
		Auth: AuthConfig{
			JWTSecret:          "dev-only-secret",
			DemoUser:           "admin",
			DemoPassword:       "admin123",
			TokenExpiryMinutes: 480,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file, over the defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret must not be empty")
	}
	if c.Auth.TokenExpiryMinutes <= 0 {
		return fmt.Errorf("auth token_expiry_minutes must be positive")
	}
	return nil
}
