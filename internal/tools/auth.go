// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

func (r *Registry) registerAuthTools() {
	r.auth(tool("login",
		"Connect to a Hopsworks cluster and open a project session. Omitted parameters fall back to the server configuration.",
		schema(map[string]any{
			"host":    stringProp("Hopsworks hostname, e.g. my.cluster.com or c.app.hopsworks.ai"),
			"port":    numberProp("REST API port, default 443"),
			"project": stringProp("Project to open; defaults to the first accessible project"),
			"api_key": stringProp("Hopsworks API key"),
			"engine":  enumProp("Compute engine to request", "python", "spark", "hive"),
		})),
		r.handleLogin)
}

type loginArgs struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Project string `json:"project"`
	APIKey  string `json:"api_key"`
	Engine  string `json:"engine"`
}

func (r *Registry) handleLogin(ctx context.Context, args json.RawMessage) (any, error) {
	var a loginArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	session, err := r.sessions.Login(ctx, hopsworks.LoginParams{
		Host:    a.Host,
		Port:    a.Port,
		Project: a.Project,
		APIKey:  a.APIKey,
		Engine:  config.Engine(a.Engine),
	})
	r.audit.LogAuth("login", err == nil, map[string]any{"host": a.Host, "project": a.Project})
	if err != nil {
		return nil, err
	}

	project := session.Project()
	return map[string]any{
		"status":  "logged_in",
		"project": project.Name,
		"engine":  string(session.Engine()),
		"role":    string(r.cfg.Role),
	}, nil
}
