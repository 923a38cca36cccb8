// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package resources implements MCP resource definitions and handlers
// for Hopsworks projects.
package resources

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

const mimeJSON = "application/json"

// Definition describes one addressable resource.
type Definition struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Template describes one parameterized resource.
type Template struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Registry manages available MCP resources.
type Registry struct {
	sessions *hopsworks.SessionManager
	config   *config.Config
}

// NewRegistry creates a new resource registry.
func NewRegistry(sessions *hopsworks.SessionManager, cfg *config.Config) *Registry {
	return &Registry{
		sessions: sessions,
		config:   cfg,
	}
}

// List returns all static resource definitions.
func (r *Registry) List() []Definition {
	return []Definition{
		{
			URI:         "projects://list",
			Name:        "Projects",
			Description: "Projects accessible with the current API key",
			MimeType:    mimeJSON,
		},
	}
}

// Templates returns all parameterized resource definitions.
func (r *Registry) Templates() []Template {
	return []Template{
		{
			URITemplate: "projects://{project_id}",
			Name:        "Project",
			Description: "Project details and feature store summary",
			MimeType:    mimeJSON,
		},
	}
}

// Read retrieves the content of a resource by URI. It returns the
// content and its MIME type.
func (r *Registry) Read(ctx context.Context, uri string) (string, string, error) {
	path, ok := strings.CutPrefix(uri, "projects://")
	if !ok {
		return "", "", hopsworks.NewError(hopsworks.KindInvalidArgument, "read resource", "invalid URI scheme: %s", uri)
	}

	if path == "list" {
		return r.readProjectList(ctx)
	}
	return r.readProject(ctx, path)
}

// readProjectList returns summaries of every accessible project.
func (r *Registry) readProjectList(ctx context.Context) (string, string, error) {
	session, err := r.sessions.Current()
	if err != nil {
		return "", "", err
	}

	projects, err := session.Client().ListProjects(ctx)
	if err != nil {
		return "", "", err
	}

	out := make([]map[string]any, 0, len(projects))
	for _, p := range projects {
		out = append(out, map[string]any{
			"id":      p.ID,
			"name":    p.Name,
			"owner":   p.Owner,
			"created": p.Created,
		})
	}
	return marshal(map[string]any{"count": len(out), "projects": out})
}

// readProject returns one project with its feature store summary.
func (r *Registry) readProject(ctx context.Context, rawID string) (string, string, error) {
	projectID, err := strconv.Atoi(rawID)
	if err != nil {
		return "", "", hopsworks.NewError(hopsworks.KindInvalidArgument, "read resource", "project id %q is not numeric", rawID)
	}

	session, err := r.sessions.Current()
	if err != nil {
		return "", "", err
	}

	project, err := session.Client().GetProject(ctx, projectID)
	if err != nil {
		return "", "", err
	}

	out := map[string]any{
		"id":          project.ID,
		"name":        project.Name,
		"owner":       project.Owner,
		"description": project.Description,
		"created":     project.Created,
	}

	// The feature store summary is best effort: a project without one
	// still resolves.
	if fs, err := session.FeatureStore(ctx, project.Name); err == nil {
		out["feature_store"] = map[string]any{
			"id":                 fs.ID,
			"name":               fs.Name,
			"online_enabled":     fs.OnlineEnabled,
			"num_feature_groups": fs.NumFeatureGroups,
		}
	}
	return marshal(out)
}

func marshal(v any) (string, string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", "", hopsworks.NewError(hopsworks.KindBackend, "read resource", "%v", err)
	}
	return string(data), mimeJSON, nil
}
