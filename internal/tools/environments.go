// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
)

func (r *Registry) registerEnvironmentTools() {
	r.read(tool("get_environment_api",
		"Connect to the current project's Python environment API.",
		noArgs()),
		r.handleGetEnvironmentAPI)

	r.admin(tool("create_environment",
		"Create a Python environment for the project, cloned from a base environment.",
		schema(map[string]any{
			"name":                  stringProp("Environment name"),
			"description":           stringProp("Environment description"),
			"base_environment_name": stringProp("Base environment to clone, default python-feature-pipeline"),
			"await_creation":        boolProp("Wait until the build finishes, default true"),
		}, "name")),
		r.handleCreateEnvironment)

	r.read(tool("get_environment",
		"Get a Python environment of the project by name.",
		schema(map[string]any{
			"name": stringProp("Environment name"),
		}, "name")),
		r.handleGetEnvironment)

	r.admin(tool("delete_environment",
		"Delete a Python environment of the project.",
		schema(map[string]any{
			"name": stringProp("Environment to delete"),
		}, "name")),
		r.handleDeleteEnvironment)

	r.admin(tool("install_requirements",
		"Install the libraries of a requirements.txt file into an environment.",
		schema(map[string]any{
			"environment_name":   stringProp("Target environment"),
			"path":               stringProp("Path of the requirements.txt in the project filesystem"),
			"await_installation": boolProp("Wait until the install finishes, default true"),
		}, "environment_name", "path")),
		r.handleInstallRequirements)

	r.admin(tool("install_wheel",
		"Install a wheel file into an environment.",
		schema(map[string]any{
			"environment_name":   stringProp("Target environment"),
			"path":               stringProp("Path of the wheel in the project filesystem"),
			"await_installation": boolProp("Wait until the install finishes, default true"),
		}, "environment_name", "path")),
		r.handleInstallWheel)
}

func (r *Registry) handleGetEnvironmentAPI(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	environments, err := session.Client().ListEnvironments(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       "ok",
		"connected":    true,
		"project":      session.Project().Name,
		"environments": len(environments),
	}, nil
}

type createEnvironmentArgs struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	BaseEnvironment string `json:"base_environment_name"`
	AwaitCreation   *bool  `json:"await_creation"`
}

func (r *Registry) handleCreateEnvironment(ctx context.Context, args json.RawMessage) (any, error) {
	var a createEnvironmentArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	base := a.BaseEnvironment
	if base == "" {
		base = "python-feature-pipeline"
	}
	await := true
	if a.AwaitCreation != nil {
		await = *a.AwaitCreation
	}
	env, err := session.Client().CreateEnvironment(ctx, session.Project().ID, a.Name, a.Description, base, await)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":           "created",
		"name":             env.Name,
		"base_environment": base,
		"python_version":   env.PythonVersion,
		"awaited":          await,
	}, nil
}

type environmentRef struct {
	Name string `json:"name"`
}

func (r *Registry) handleGetEnvironment(ctx context.Context, args json.RawMessage) (any, error) {
	var a environmentRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	env, err := session.Client().GetEnvironment(ctx, session.Project().ID, a.Name)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":           "ok",
		"name":             env.Name,
		"description":      env.Description,
		"python_version":   env.PythonVersion,
		"pending_commands": env.PendingCommands,
	}, nil
}

func (r *Registry) handleDeleteEnvironment(ctx context.Context, args json.RawMessage) (any, error) {
	var a environmentRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteEnvironment(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": a.Name}, nil
}

type installLibraryArgs struct {
	EnvironmentName   string `json:"environment_name"`
	Path              string `json:"path"`
	AwaitInstallation *bool  `json:"await_installation"`
}

func (a installLibraryArgs) await() bool {
	if a.AwaitInstallation != nil {
		return *a.AwaitInstallation
	}
	return true
}

func (r *Registry) handleInstallRequirements(ctx context.Context, args json.RawMessage) (any, error) {
	var a installLibraryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	lib, err := session.Client().InstallRequirements(ctx, session.Project().ID, a.EnvironmentName, a.Path, a.await())
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":      "installed",
		"environment": a.EnvironmentName,
		"path":        a.Path,
		"library":     lib,
		"awaited":     a.await(),
	}, nil
}

func (r *Registry) handleInstallWheel(ctx context.Context, args json.RawMessage) (any, error) {
	var a installLibraryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	lib, err := session.Client().InstallWheel(ctx, session.Project().ID, a.EnvironmentName, a.Path, a.await())
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":      "installed",
		"environment": a.EnvironmentName,
		"path":        a.Path,
		"library":     lib,
		"awaited":     a.await(),
	}, nil
}
