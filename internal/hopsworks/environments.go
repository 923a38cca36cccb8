// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultBaseEnvironment is the environment new ones are cloned from
// when no base is given.
const DefaultBaseEnvironment = "python-feature-pipeline"

// Environment is a project Python environment.
type Environment struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PythonVersion string `json:"pythonVersion,omitempty"`
	// Commands still running against the environment, such as the
	// initial build or a library install.
	PendingCommands int `json:"-"`
}

// environmentItem carries the expanded commands count alongside the
// environment.
type environmentItem struct {
	Environment
	Commands itemsEnvelope[struct {
		Status string `json:"status"`
	}] `json:"commands"`
}

// Library is a package installed into an environment.
type Library struct {
	Name          string `json:"library"`
	PackageSource string `json:"packageSource,omitempty"`
	Version       string `json:"version,omitempty"`
	Status        string `json:"status,omitempty"`
}

func environmentsRoot(projectID int) string {
	return fmt.Sprintf("project/%d/python/environments", projectID)
}

func environmentPath(projectID int, name string) string {
	return environmentsRoot(projectID) + "/" + url.PathEscape(name)
}

// CreateEnvironment clones a new Python environment from a base
// environment. When awaitCreation is true the call blocks until the
// build finishes.
func (c *Client) CreateEnvironment(ctx context.Context, projectID int, name, description, baseEnvironment string, awaitCreation bool) (*Environment, error) {
	const op = "create environment"
	if name == "" {
		return nil, NewError(KindInvalidArgument, op, "environment name is required")
	}
	if baseEnvironment == "" {
		baseEnvironment = DefaultBaseEnvironment
	}
	body := map[string]any{
		"name":                name,
		"description":         description,
		"baseEnvironmentName": baseEnvironment,
	}
	var env Environment
	if err := c.post(ctx, op, environmentPath(projectID, name), nil, body, &env); err != nil {
		return nil, err
	}
	if env.Name == "" {
		env.Name = name
	}
	if awaitCreation {
		return c.awaitEnvironmentReady(ctx, op, projectID, name)
	}
	return &env, nil
}

// GetEnvironment returns an environment together with the number of
// commands still running against it.
func (c *Client) GetEnvironment(ctx context.Context, projectID int, name string) (*Environment, error) {
	q := url.Values{}
	q.Set("expand", "commands")
	var item environmentItem
	if err := c.get(ctx, "get environment", environmentPath(projectID, name), q, &item); err != nil {
		return nil, err
	}
	env := item.Environment
	env.PendingCommands = len(item.Commands.Items)
	return &env, nil
}

// ListEnvironments returns the Python environments of a project.
func (c *Client) ListEnvironments(ctx context.Context, projectID int) ([]Environment, error) {
	var resp itemsEnvelope[Environment]
	if err := c.get(ctx, "list environments", environmentsRoot(projectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// DeleteEnvironment removes an environment.
func (c *Client) DeleteEnvironment(ctx context.Context, projectID int, name string) error {
	return c.delete(ctx, "delete environment", environmentPath(projectID, name), nil)
}

// InstallRequirements installs the packages listed in a
// requirements.txt file stored in the project filesystem.
func (c *Client) InstallRequirements(ctx context.Context, projectID int, envName, requirementsPath string, awaitInstallation bool) (*Library, error) {
	return c.installLibrary(ctx, "install requirements", projectID, envName, requirementsPath, "REQUIREMENTS_TXT", awaitInstallation)
}

// InstallWheel installs a wheel file stored in the project filesystem.
func (c *Client) InstallWheel(ctx context.Context, projectID int, envName, wheelPath string, awaitInstallation bool) (*Library, error) {
	return c.installLibrary(ctx, "install wheel", projectID, envName, wheelPath, "WHEEL", awaitInstallation)
}

func (c *Client) installLibrary(ctx context.Context, op string, projectID int, envName, dsPath, source string, await bool) (*Library, error) {
	if dsPath == "" {
		return nil, NewError(KindInvalidArgument, op, "file path is required")
	}
	libName := path.Base(strings.TrimRight(dsPath, "/"))
	q := url.Values{}
	q.Set("package_source", source)
	q.Set("dependency_url", dsPath)
	libPath := environmentPath(projectID, envName) + "/libraries/" + url.PathEscape(libName)
	var lib Library
	if err := c.post(ctx, op, libPath, q, nil, &lib); err != nil {
		return nil, err
	}
	if lib.Name == "" {
		lib.Name = libName
	}
	if await {
		if _, err := c.awaitEnvironmentReady(ctx, op, projectID, envName); err != nil {
			return nil, err
		}
	}
	return &lib, nil
}

// awaitEnvironmentReady polls the environment until no commands are
// running against it.
func (c *Client) awaitEnvironmentReady(ctx context.Context, op string, projectID int, name string) (*Environment, error) {
	env, err := backoff.Retry(ctx, func() (*Environment, error) {
		current, err := c.GetEnvironment(ctx, projectID, name)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if current.PendingCommands > 0 {
			return nil, fmt.Errorf("environment %q has %d commands running", name, current.PendingCommands)
		}
		return current, nil
	}, backoff.WithBackOff(backoff.NewConstantBackOff(5*time.Second)),
		backoff.WithMaxElapsedTime(30*time.Minute))
	if err != nil {
		return nil, NewError(KindUnavailable, op, "timed out waiting for environment %q", name)
	}
	return env, nil
}
