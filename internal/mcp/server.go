// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package mcp assembles the MCP server: tool and resource registries,
// audit logging, rate limiting, and the serving transports.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/audit"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/resources"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/tools"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

const serverName = "hopsworks-mcp-server"

// Server is the MCP server for Hopsworks.
type Server struct {
	cfg       *config.Config
	log       *zap.Logger
	sessions  *hopsworks.SessionManager
	audit     *audit.Logger
	limiter   *audit.RateLimiter
	tools     *tools.Registry
	resources *resources.Registry
	mcp       *server.MCPServer
	version   string
}

// NewServer creates a fully wired MCP server for the configured role
// and transport.
func NewServer(cfg *config.Config, log *zap.Logger, version string) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	auditLogger, err := audit.NewLogger(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		FilePath:   cfg.Audit.FilePath,
		BufferSize: cfg.Audit.BufferSize,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("creating audit logger: %w", err)
	}

	limiter := audit.NewRateLimiter(audit.RateLimitConfig{
		Enabled:        cfg.Audit.RateLimitEnabled,
		RequestsPerSec: cfg.Audit.RateLimitRPS,
		BurstSize:      cfg.Audit.RateLimitBurst,
	})

	sessions := hopsworks.NewSessionManager(cfg, log)

	s := &Server{
		cfg:       cfg,
		log:       log,
		sessions:  sessions,
		audit:     auditLogger,
		limiter:   limiter,
		tools:     tools.NewRegistry(sessions, cfg, log, auditLogger, limiter),
		resources: resources.NewRegistry(sessions, cfg),
		version:   version,
	}

	s.mcp = server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
		server.WithRecovery(),
	)
	s.registerTools()
	s.registerResources()

	return s, nil
}

// Sessions exposes the session manager so the caller can close it on
// shutdown.
func (s *Server) Sessions() *hopsworks.SessionManager { return s.sessions }

func (s *Server) registerTools() {
	for _, t := range s.tools.List() {
		s.mcp.AddTool(t.Definition, s.toolHandler(t.Definition.Name))
	}
	s.log.Info("registered tools",
		zap.Int("count", len(s.tools.List())),
		zap.String("role", string(s.cfg.Role)))
}

func (s *Server) registerResources() {
	for _, def := range s.resources.List() {
		s.mcp.AddResource(mcp.NewResource(def.URI, def.Name,
			mcp.WithResourceDescription(def.Description),
			mcp.WithMIMEType(def.MimeType),
		), s.readResource)
	}
	for _, tmpl := range s.resources.Templates() {
		s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(tmpl.URITemplate, tmpl.Name,
			mcp.WithTemplateDescription(tmpl.Description),
			mcp.WithTemplateMIMEType(tmpl.MimeType),
		), s.readResource)
	}
}

// toolHandler adapts a registry tool to the mcp-go handler contract.
// Registry.Call already folds every failure into the uniform error
// payload, so the adapter only decides text versus error result.
func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if args := request.GetArguments(); len(args) > 0 {
			data, err := json.Marshal(args)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
			raw = data
		}

		out := s.tools.Call(ctx, name, raw)
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling result: %v", err)), nil
		}
		if _, failed := out.(tools.ErrorPayload); failed {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func (s *Server) readResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	content, mimeType, err := s.resources.Read(ctx, request.Params.URI)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: mimeType,
			Text:     content,
		},
	}, nil
}

// Run serves on the configured transport until the context is
// cancelled or the transport stops.
func (s *Server) Run(ctx context.Context) error {
	s.audit.Log(audit.Event{
		Level:    audit.LevelInfo,
		Category: audit.CategorySystem,
		Tool:     "server_start",
		Success:  true,
		Details: map[string]any{
			"version":   s.version,
			"transport": s.cfg.Transport,
			"role":      string(s.cfg.Role),
		},
	})
	defer func() {
		s.audit.Log(audit.Event{
			Level:    audit.LevelInfo,
			Category: audit.CategorySystem,
			Tool:     "server_shutdown",
			Success:  true,
		})
		if err := s.audit.Close(); err != nil {
			s.log.Warn("closing audit logger", zap.Error(err))
		}
	}()

	switch strings.ToLower(s.cfg.Transport) {
	case "stdio":
		s.log.Info("serving MCP on stdio")
		return server.ServeStdio(s.mcp)

	case "sse":
		sse := server.NewSSEServer(s.mcp)
		return s.serveHTTP(ctx, "sse", sse.Start, sse.Shutdown)

	case "streamable-http":
		httpSrv := server.NewStreamableHTTPServer(s.mcp,
			server.WithEndpointPath("/mcp"))
		return s.serveHTTP(ctx, "streamable-http", httpSrv.Start, httpSrv.Shutdown)

	default:
		return fmt.Errorf("unsupported transport: %s", s.cfg.Transport)
	}
}

// serveHTTP runs an HTTP-based transport and shuts it down gracefully
// when the context is cancelled.
func (s *Server) serveHTTP(ctx context.Context, transport string, start func(string) error, shutdown func(context.Context) error) error {
	addr := fmt.Sprintf(":%d", s.cfg.ListenPort)
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(addr)
	}()
	s.log.Info("serving MCP over HTTP",
		zap.String("transport", transport),
		zap.String("addr", addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return shutdown(shutdownCtx)
	}
}
