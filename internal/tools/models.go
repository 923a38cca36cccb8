// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
)

func (r *Registry) registerModelTools() {
	r.read(tool("get_model_registry",
		"Connect to the current project's model registry.",
		noArgs()),
		r.handleGetModelRegistry)

	r.read(tool("list_models",
		"List all model versions in the project's model registry.",
		noArgs()),
		r.handleListModels)

	r.read(tool("get_model",
		"Get one model from the registry by name.",
		schema(map[string]any{
			"name":    stringProp("Model name"),
			"version": numberProp("Model version, latest when omitted"),
		}, "name")),
		r.handleGetModel)

	r.read(tool("get_model_serving",
		"Connect to the current project's model serving.",
		noArgs()),
		r.handleGetModelServing)

	r.read(tool("list_deployments",
		"List the project's model serving deployments.",
		noArgs()),
		r.handleListDeployments)

	r.write(tool("deploy_model",
		"Deploy a registered model to the serving infrastructure.",
		schema(map[string]any{
			"model_name":      stringProp("Model to deploy"),
			"model_version":   numberProp("Model version, latest when omitted"),
			"deployment_name": stringProp("Deployment name, defaults to the model name"),
		}, "model_name")),
		r.handleDeployModel)
}

func (r *Registry) handleGetModelRegistry(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	registry, err := session.Client().GetModelRegistry(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":      "ok",
		"registry_id": registry.ID,
		"project":     session.Project().Name,
	}, nil
}

func (r *Registry) handleListModels(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	registry, err := session.Client().GetModelRegistry(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	models, err := session.Client().ListModels(ctx, session.Project().ID, registry.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(models), "models": models}, nil
}

type modelRef struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func (r *Registry) handleGetModel(ctx context.Context, args json.RawMessage) (any, error) {
	var a modelRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	registry, err := session.Client().GetModelRegistry(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	model, err := session.Client().GetModel(ctx, session.Project().ID, registry.ID, a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "model": model}, nil
}

func (r *Registry) handleGetModelServing(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	deployments, err := session.Client().ListDeployments(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":      "ok",
		"connected":   true,
		"project":     session.Project().Name,
		"deployments": len(deployments),
	}, nil
}

func (r *Registry) handleListDeployments(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	deployments, err := session.Client().ListDeployments(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(deployments), "deployments": deployments}, nil
}

type deployModelArgs struct {
	ModelName      string `json:"model_name"`
	ModelVersion   int    `json:"model_version"`
	DeploymentName string `json:"deployment_name"`
}

func (r *Registry) handleDeployModel(ctx context.Context, args json.RawMessage) (any, error) {
	var a deployModelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	registry, err := session.Client().GetModelRegistry(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	model, err := session.Client().GetModel(ctx, session.Project().ID, registry.ID, a.ModelName, a.ModelVersion)
	if err != nil {
		return nil, err
	}

	name := a.DeploymentName
	if name == "" {
		name = model.Name
	}
	deployment, err := session.Client().CreateDeployment(ctx, session.Project().ID, session.Project().Name, name, model)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":     "deployed",
		"deployment": deployment,
	}, nil
}
