// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerOpenSearchTools() {
	r.read(tool("get_opensearch_config",
		"Get the connection configuration for the cluster's OpenSearch endpoint, including a fresh bearer token.",
		schema(map[string]any{
			"verify_certs": boolProp("Verify TLS certificates when connecting"),
		})),
		r.handleGetOpenSearchConfig)

	r.read(tool("get_project_index",
		"Prefix an OpenSearch index name with the project name to avoid cross-project clashes.",
		schema(map[string]any{
			"index": stringProp("Index name to prefix"),
		}, "index")),
		r.handleGetProjectIndex)
}

type openSearchConfigArgs struct {
	VerifyCerts bool `json:"verify_certs"`
}

func (r *Registry) handleGetOpenSearchConfig(ctx context.Context, args json.RawMessage) (any, error) {
	var a openSearchConfigArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	config, err := session.Client().OpenSearchConfigFor(ctx, session.Project().ID, a.VerifyCerts)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       "ok",
		"hosts":        config.Hosts,
		"use_ssl":      config.UseSSL,
		"verify_certs": config.VerifyCerts,
		"headers":      config.Headers,
	}, nil
}

type projectIndexArgs struct {
	Index string `json:"index"`
}

func (r *Registry) handleGetProjectIndex(ctx context.Context, args json.RawMessage) (any, error) {
	var a projectIndexArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status": "ok",
		"index":  hopsworks.ProjectIndex(session.Project().Name, a.Index),
	}, nil
}
