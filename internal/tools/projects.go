// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
)

func (r *Registry) registerProjectTools() {
	r.read(tool("get_current_project",
		"Return the project the session is logged into.",
		noArgs()),
		r.handleGetCurrentProject)

	r.read(tool("list_projects",
		"List all projects accessible with the current API key.",
		noArgs()),
		r.handleListProjects)
}

func (r *Registry) handleGetCurrentProject(_ context.Context, _ json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "project": session.Project()}, nil
}

func (r *Registry) handleListProjects(ctx context.Context, _ json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	projects, err := session.Client().ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(projects), "projects": projects}, nil
}
