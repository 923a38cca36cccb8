// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 443, cfg.Port)
	assert.Equal(t, RoleReadOnly, cfg.Role)
	assert.Equal(t, EnginePython, cfg.Engine)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.True(t, cfg.Audit.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{
		"host": "demo.hops.works",
		"project": "fraud_detection",
		"api_key": "test-key",
		"role": "read-write",
		"transport": "sse",
		"listen_port": 9090
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo.hops.works", cfg.Host)
	assert.Equal(t, "fraud_detection", cfg.Project)
	assert.Equal(t, RoleReadWrite, cfg.Role)
	assert.Equal(t, "sse", cfg.Transport)
	assert.Equal(t, 9090, cfg.ListenPort)
	// Untouched fields keep defaults.
	assert.Equal(t, 443, cfg.Port)
	assert.Equal(t, 100, cfg.DefaultRowLimit)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOPSWORKS_MCP_HOST", "env.hops.works")
	t.Setenv("HOPSWORKS_MCP_API_KEY", "env-key")
	t.Setenv("HOPSWORKS_MCP_ROLE", "admin")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env.hops.works", cfg.Host)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, RoleAdmin, cfg.Role)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "bad role",
			mutate:  func(c *Config) { c.Role = "superuser" },
			wantErr: "invalid role",
		},
		{
			name:    "bad engine",
			mutate:  func(c *Config) { c.Engine = "flink" },
			wantErr: "invalid engine",
		},
		{
			name:    "bad transport",
			mutate:  func(c *Config) { c.Transport = "grpc" },
			wantErr: "invalid transport",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:   "empty role defaults to read-only",
			mutate: func(c *Config) { c.Role = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRolePermissions(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.CanWrite())
	assert.False(t, cfg.CanAdmin())

	cfg.Role = RoleReadWrite
	assert.True(t, cfg.CanWrite())
	assert.False(t, cfg.CanAdmin())

	cfg.Role = RoleAdmin
	assert.True(t, cfg.CanWrite())
	assert.True(t, cfg.CanAdmin())
}

func TestBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "demo.hops.works"
	assert.Equal(t, "https://demo.hops.works:443/hopsworks-api/api", cfg.BaseURL())
}
