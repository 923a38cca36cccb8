// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
)

// Project is a Hopsworks project.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// ListProjects returns all projects accessible with the current API key.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.get(ctx, "list projects", "project", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject returns a project by numeric ID.
func (c *Client) GetProject(ctx context.Context, projectID int) (*Project, error) {
	var out Project
	if err := c.get(ctx, "get project", fmt.Sprintf("project/%d", projectID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProjectByName returns a project by name.
func (c *Client) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	var out Project
	path := fmt.Sprintf("project/getProjectInfo/%s", name)
	if err := c.get(ctx, "get project", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFirstProject returns the first accessible project. Used at login when
// no project name is configured, matching the platform SDK's behavior.
func (c *Client) GetFirstProject(ctx context.Context) (*Project, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, NewError(KindNotFound, "login", "no accessible projects for this API key")
	}
	return &projects[0], nil
}
