// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package tools implements the MCP tool registry and handlers for
// feature store operations.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/audit"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/exprfilter"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/udf"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

// Handler handles one tool call. Arguments arrive as the raw JSON
// object from the MCP request.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool pairs an MCP tool definition with its handler and audit
// classification.
type Tool struct {
	Definition  mcp.Tool
	Category    audit.Category
	Destructive bool
	handler     Handler
}

// ErrorPayload is the uniform failure shape every tool returns.
type ErrorPayload struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Registry holds all registered tools. Which tools are registered
// depends on the configured role: write tools need read-write,
// destructive infrastructure tools need admin.
type Registry struct {
	sessions *hopsworks.SessionManager
	cfg      *config.Config
	log      *zap.Logger
	audit    *audit.Logger
	limiter  *audit.RateLimiter
	loader   *udf.Loader

	tools map[string]*Tool
	order []string
}

// NewRegistry creates a registry with all tools permitted by the
// configured role.
func NewRegistry(sessions *hopsworks.SessionManager, cfg *config.Config, log *zap.Logger, auditLog *audit.Logger, limiter *audit.RateLimiter) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		audit:    auditLog,
		limiter:  limiter,
		loader:   udf.NewLoader(),
		tools:    make(map[string]*Tool),
	}

	r.registerAuthTools()
	r.registerProjectTools()
	r.registerFeatureStoreTools()
	r.registerFeatureGroupTools()
	r.registerExternalFeatureGroupTools()
	r.registerFeatureTools()
	r.registerFeatureViewTools()
	r.registerQueryTools()
	r.registerSpineGroupTools()
	r.registerTrainingDatasetTools()
	r.registerTransformationTools()
	r.registerExpectationTools()
	r.registerEmbeddingTools()
	r.registerModelTools()
	r.registerDatasetTools()
	r.registerEnvironmentTools()
	r.registerJobTools()
	r.registerFlinkTools()
	r.registerGitTools()
	r.registerKafkaTools()
	r.registerOpenSearchTools()
	r.registerSecretTools()

	return r
}

func (r *Registry) add(def mcp.Tool, category audit.Category, destructive bool, h Handler) {
	r.tools[def.Name] = &Tool{Definition: def, Category: category, Destructive: destructive, handler: h}
	r.order = append(r.order, def.Name)
}

// read registers a tool available under every role.
func (r *Registry) read(def mcp.Tool, h Handler) {
	r.add(def, audit.CategoryRead, false, h)
}

// write registers a tool that mutates state. Skipped under read-only.
func (r *Registry) write(def mcp.Tool, h Handler) {
	if !r.cfg.CanWrite() {
		return
	}
	r.add(def, audit.CategoryWrite, false, h)
}

// destructive registers a write tool that removes data. It is rate
// limited and preceded by an advisory audit event.
func (r *Registry) destructive(def mcp.Tool, h Handler) {
	if !r.cfg.CanWrite() {
		return
	}
	r.add(def, audit.CategoryWrite, true, h)
}

// admin registers a destructive infrastructure tool, admin role only.
func (r *Registry) admin(def mcp.Tool, h Handler) {
	if !r.cfg.CanAdmin() {
		return
	}
	r.add(def, audit.CategoryAdmin, true, h)
}

// auth registers an authentication tool, available under every role.
func (r *Registry) auth(def mcp.Tool, h Handler) {
	r.add(def, audit.CategoryAuth, false, h)
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.tools[name])
	}
	return out
}

// Call dispatches a tool call. Every failure, from unknown tool to
// backend error, comes back as an ErrorPayload so all tools share one
// error shape.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) any {
	tool, ok := r.tools[name]
	if !ok {
		return ErrorPayload{Status: "error", Kind: string(hopsworks.KindNotFound), Message: fmt.Sprintf("unknown tool %q", name)}
	}

	if tool.Destructive {
		if !r.limiter.Allow() {
			return ErrorPayload{Status: "error", Kind: string(hopsworks.KindUnavailable), Message: "rate limit exceeded for destructive operations, retry later"}
		}
		r.audit.LogAdvisory(name, r.projectName(), "")
	}

	start := time.Now()
	out, err := tool.handler(ctx, args)
	r.audit.LogCall(tool.Category, name, r.projectName(), "", time.Since(start), err)
	if err != nil {
		r.log.Debug("tool call failed", zap.String("tool", name), zap.Error(err))
		return errorPayload(err)
	}
	return out
}

// projectName is best effort: before login there is no project.
func (r *Registry) projectName() string {
	session, err := r.sessions.Current()
	if err != nil {
		return ""
	}
	return session.Project().Name
}

// errorPayload maps an error to the uniform failure shape. Expression
// and callable errors carry no API kind of their own and classify as
// invalid arguments.
func errorPayload(err error) ErrorPayload {
	kind := hopsworks.KindOf(err)
	switch {
	case errors.Is(err, exprfilter.ErrMalformedExpression),
		errors.Is(err, exprfilter.ErrUnsupportedOperator),
		errors.Is(err, exprfilter.ErrUnknownColumn),
		errors.Is(err, udf.ErrNoFunction),
		errors.Is(err, udf.ErrAmbiguousFunction),
		errors.Is(err, udf.ErrMissingParameter),
		errors.Is(err, udf.ErrCodeExecution):
		kind = hopsworks.KindInvalidArgument
	}
	return ErrorPayload{Status: "error", Kind: string(kind), Message: err.Error()}
}

// decodeArgs unmarshals the raw argument object into a typed args
// struct. A missing argument object is treated as empty.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return hopsworks.NewError(hopsworks.KindInvalidArgument, "decode arguments", "%v", err)
	}
	return nil
}

// session returns the logged-in session or an unauthenticated error.
func (r *Registry) session() (*hopsworks.Session, error) {
	return r.sessions.Current()
}

// featureStore resolves the session and the feature store of the named
// project (or the session project when empty).
func (r *Registry) featureStore(ctx context.Context, projectName string) (*hopsworks.Session, *hopsworks.FeatureStore, error) {
	session, err := r.sessions.Current()
	if err != nil {
		return nil, nil, err
	}
	fs, err := session.FeatureStore(ctx, projectName)
	if err != nil {
		return nil, nil, err
	}
	return session, fs, nil
}

// rowLimit applies the configured default row limit when the caller
// did not ask for one.
func (r *Registry) rowLimit(requested int) int {
	if requested <= 0 {
		return r.cfg.DefaultRowLimit
	}
	return requested
}
