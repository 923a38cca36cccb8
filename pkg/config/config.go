// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration types and loading for the Hopsworks MCP server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Role defines the permission level for platform operations.
type Role string

const (
	RoleReadOnly  Role = "read-only"
	RoleReadWrite Role = "read-write"
	RoleAdmin     Role = "admin"
)

// Engine selects the compute engine requested at login.
type Engine string

const (
	EnginePython Engine = "python"
	EngineSpark  Engine = "spark"
	EngineHive   Engine = "hive"
)

// Config holds the complete configuration for the Hopsworks MCP server.
type Config struct {
	// Hopsworks connection settings
	Host                 string `mapstructure:"host"`
	Port                 int    `mapstructure:"port"`
	Project              string `mapstructure:"project"`
	APIKey               string `mapstructure:"api_key"`
	Engine               Engine `mapstructure:"engine"`
	HostnameVerification bool   `mapstructure:"hostname_verification"`

	// Authorization
	Role Role `mapstructure:"role"`

	// Client settings
	TimeoutMs  int `mapstructure:"timeout_ms"`
	MaxRetries int `mapstructure:"max_retries"`

	// Safety constraints
	DefaultRowLimit int `mapstructure:"default_row_limit"`

	// Server settings
	Transport  string `mapstructure:"transport"` // "stdio", "sse", "streamable-http"
	ListenPort int    `mapstructure:"listen_port"`

	// Audit settings
	Audit AuditConfig `mapstructure:"audit"`
}

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	FilePath         string  `mapstructure:"file_path"`
	BufferSize       int     `mapstructure:"buffer_size"`
	RateLimitEnabled bool    `mapstructure:"rate_limit_enabled"`
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            443,
		Engine:          EnginePython,
		Role:            RoleReadOnly,
		TimeoutMs:       30000,
		MaxRetries:      2,
		DefaultRowLimit: 100,
		Transport:       "stdio",
		ListenPort:      8080,
		Audit: AuditConfig{
			Enabled:          true,
			BufferSize:       100,
			RateLimitEnabled: true,
			RateLimitRPS:     100,
			RateLimitBurst:   200,
		},
	}
}

// Load reads configuration from an optional file path merged with
// HOPSWORKS_MCP_-prefixed environment variables. If configPath is empty,
// the HOPSWORKS_MCP_CONFIG env var is consulted for a file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOPSWORKS_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("port", def.Port)
	v.SetDefault("engine", string(def.Engine))
	v.SetDefault("role", string(def.Role))
	v.SetDefault("timeout_ms", def.TimeoutMs)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("default_row_limit", def.DefaultRowLimit)
	v.SetDefault("transport", def.Transport)
	v.SetDefault("listen_port", def.ListenPort)
	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.rate_limit_enabled", def.Audit.RateLimitEnabled)
	v.SetDefault("audit.rate_limit_rps", def.Audit.RateLimitRPS)
	v.SetDefault("audit.rate_limit_burst", def.Audit.RateLimitBurst)

	if configPath == "" {
		configPath = v.GetString("config")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors and fills in fallbacks.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch c.Role {
	case RoleReadOnly, RoleReadWrite, RoleAdmin:
	case "":
		c.Role = RoleReadOnly
	default:
		return fmt.Errorf("invalid role: %s (must be read-only, read-write, or admin)", c.Role)
	}

	switch c.Engine {
	case EnginePython, EngineSpark, EngineHive:
	case "":
		c.Engine = EnginePython
	default:
		return fmt.Errorf("invalid engine: %s (must be python, spark, or hive)", c.Engine)
	}

	validTransports := []string{"stdio", "sse", "streamable-http"}
	transportValid := false
	for _, t := range validTransports {
		if strings.EqualFold(c.Transport, t) {
			transportValid = true
			break
		}
	}
	if !transportValid {
		return fmt.Errorf("invalid transport: %s (must be stdio, sse, or streamable-http)", c.Transport)
	}

	if c.TimeoutMs <= 0 {
		c.TimeoutMs = 30000
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 2
	}
	if c.DefaultRowLimit <= 0 {
		c.DefaultRowLimit = 100
	}
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		c.ListenPort = 8080
	}

	return nil
}

// CanWrite returns true if the role permits write operations.
func (c *Config) CanWrite() bool {
	return c.Role == RoleReadWrite || c.Role == RoleAdmin
}

// CanAdmin returns true if the role permits administrative operations.
func (c *Config) CanAdmin() bool {
	return c.Role == RoleAdmin
}

// BaseURL returns the REST API base URL for the configured host and port.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("https://%s:%d/hopsworks-api/api", c.Host, c.Port)
}
