// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/audit"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

// newTestRegistry builds a registry wired to a fake Hopsworks backend.
// The backend answers project resolution so the login tool works; every
// other route goes to handler.
func newTestRegistry(t *testing.T, role config.Role, handler http.HandlerFunc) (*Registry, *httptest.Server) {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/project/getProjectInfo/sales") {
			fmt.Fprint(w, `{"id":119,"name":"sales","owner":"admin@hopsworks.ai"}`)
			return
		}
		if handler != nil {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Role = role
	cfg.Audit.Enabled = false

	sessions := hopsworks.NewSessionManager(cfg, nil)
	auditLogger, err := audit.NewLogger(audit.Config{Enabled: false}, nil)
	require.NoError(t, err)
	limiter := audit.NewRateLimiter(audit.RateLimitConfig{Enabled: false})

	return NewRegistry(sessions, cfg, nil, auditLogger, limiter), srv
}

// login opens a session against the fake backend.
func login(t *testing.T, r *Registry, srv *httptest.Server) {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	args, err := json.Marshal(map[string]any{
		"host":    u.Hostname(),
		"port":    port,
		"project": "sales",
		"api_key": "test-key",
	})
	require.NoError(t, err)

	out := r.Call(context.Background(), "login", args)
	result, ok := out.(map[string]any)
	require.True(t, ok, "login failed: %+v", out)
	assert.Equal(t, "logged_in", result["status"])
}

func toolNames(r *Registry) map[string]bool {
	names := make(map[string]bool)
	for _, t := range r.List() {
		names[t.Definition.Name] = true
	}
	return names
}

func TestRoleGating(t *testing.T) {
	readOnly, _ := newTestRegistry(t, config.RoleReadOnly, nil)
	readWrite, _ := newTestRegistry(t, config.RoleReadWrite, nil)
	admin, _ := newTestRegistry(t, config.RoleAdmin, nil)

	ro := toolNames(readOnly)
	rw := toolNames(readWrite)
	ad := toolNames(admin)

	// Reads and auth are available everywhere.
	for _, name := range []string{"login", "get_feature_store", "list_feature_groups"} {
		assert.True(t, ro[name], "read-only should have %s", name)
		assert.True(t, rw[name], "read-write should have %s", name)
		assert.True(t, ad[name], "admin should have %s", name)
	}

	// Writes need read-write.
	for _, name := range []string{"create_feature_group", "delete_feature_group"} {
		assert.False(t, ro[name], "read-only should not have %s", name)
		assert.True(t, rw[name], "read-write should have %s", name)
		assert.True(t, ad[name], "admin should have %s", name)
	}

	// Environment management needs admin.
	for _, name := range []string{"create_environment", "delete_environment", "install_requirements"} {
		assert.False(t, ro[name], "read-only should not have %s", name)
		assert.False(t, rw[name], "read-write should not have %s", name)
		assert.True(t, ad[name], "admin should have %s", name)
	}
}

func TestCallUnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t, config.RoleReadOnly, nil)

	out := r.Call(context.Background(), "no_such_tool", nil)

	payload, ok := out.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "error", payload.Status)
	assert.Equal(t, string(hopsworks.KindNotFound), payload.Kind)
	assert.Contains(t, payload.Message, "no_such_tool")
}

func TestCallRequiresLogin(t *testing.T) {
	r, _ := newTestRegistry(t, config.RoleReadOnly, nil)

	out := r.Call(context.Background(), "get_feature_store", nil)

	payload, ok := out.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, string(hopsworks.KindUnauthenticated), payload.Kind)
	assert.Contains(t, payload.Message, "login")
}

func TestDestructiveRateLimit(t *testing.T) {
	r, srv := newTestRegistry(t, config.RoleReadWrite, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	login(t, r, srv)

	// A bucket of one token and near-zero refill: the first destructive
	// call consumes it, the second is rejected before its handler runs.
	r.limiter = audit.NewRateLimiter(audit.RateLimitConfig{
		Enabled:        true,
		RequestsPerSec: 0.0001,
		BurstSize:      1,
	})

	args := json.RawMessage(`{"name":"transactions","version":1}`)
	first := r.Call(context.Background(), "delete_feature_group", args)
	payload, ok := first.(ErrorPayload)
	require.True(t, ok)
	assert.NotEqual(t, string(hopsworks.KindUnavailable), payload.Kind)

	second := r.Call(context.Background(), "delete_feature_group", args)
	payload, ok = second.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, string(hopsworks.KindUnavailable), payload.Kind)
	assert.Contains(t, payload.Message, "rate limit")
}

func TestErrorsShareOneShape(t *testing.T) {
	r, srv := newTestRegistry(t, config.RoleReadWrite, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"errorMsg":"backend exploded"}`)
	})
	login(t, r, srv)

	for _, name := range []string{"get_feature_store", "list_feature_groups", "get_jobs", "get_model_registry"} {
		out := r.Call(context.Background(), name, nil)

		payload, ok := out.(ErrorPayload)
		require.True(t, ok, "%s should fail", name)
		assert.Equal(t, "error", payload.Status, name)
		assert.Equal(t, string(hopsworks.KindBackend), payload.Kind, name)
		assert.Contains(t, payload.Message, "backend exploded", name)
	}
}

// TestErrorUniformityAcrossCatalog drives every registered tool with
// empty arguments against a backend that always fails. A tool may
// succeed locally (API-handle and stateless tools), but any failure
// must carry the full uniform payload.
func TestErrorUniformityAcrossCatalog(t *testing.T) {
	r, srv := newTestRegistry(t, config.RoleAdmin, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"errorMsg":"stub backend failure"}`)
	})
	login(t, r, srv)

	for _, tl := range r.List() {
		name := tl.Definition.Name
		if name == "login" {
			continue
		}

		out := r.Call(context.Background(), name, nil)
		payload, failed := out.(ErrorPayload)
		if !failed {
			continue
		}
		assert.Equal(t, "error", payload.Status, name)
		assert.NotEmpty(t, payload.Kind, name)
		assert.NotEmpty(t, payload.Message, name)
	}
}

func TestInvalidArgumentsDecode(t *testing.T) {
	r, srv := newTestRegistry(t, config.RoleReadOnly, nil)
	login(t, r, srv)

	out := r.Call(context.Background(), "get_feature_group", json.RawMessage(`{"version":"not-a-number"}`))

	payload, ok := out.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, string(hopsworks.KindInvalidArgument), payload.Kind)
}
