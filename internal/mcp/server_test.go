// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/tools"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Audit.Enabled = false
	s, err := NewServer(cfg, nil, "test")
	require.NoError(t, err)
	return s
}

func TestNewServerWiring(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.Sessions())
	assert.NotEmpty(t, s.tools.List())
	assert.NotEmpty(t, s.resources.List())
}

func TestToolHandlerUnknownToolIsError(t *testing.T) {
	s := newTestServer(t)
	handler := s.toolHandler("no_such_tool")

	result, err := handler(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
}

func TestToolHandlerErrorPayloadShape(t *testing.T) {
	s := newTestServer(t)
	// Without a session every read tool fails; the handler must fold
	// that into an error result carrying the uniform payload.
	handler := s.toolHandler("get_feature_store")

	result, err := handler(context.Background(), mcp.CallToolRequest{})

	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var payload tools.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	assert.Equal(t, "error", payload.Status)
	assert.Equal(t, "unauthenticated", payload.Kind)
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Transport = "carrier-pigeon"

	err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")
}

func TestReadResourceUnknownScheme(t *testing.T) {
	s := newTestServer(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "jobs://list"

	_, err := s.readResource(context.Background(), req)
	require.Error(t, err)
}
