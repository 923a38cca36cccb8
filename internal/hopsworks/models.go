// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
)

// ModelRegistry is the project's model registry handle.
type ModelRegistry struct {
	ID          int    `json:"id"`
	ProjectName string `json:"parentProjectName,omitempty"`
}

// Model is one registered model version.
type Model struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Version      int                `json:"version"`
	Description  string             `json:"description,omitempty"`
	Created      int64              `json:"created,omitempty"`
	Framework    string             `json:"framework,omitempty"`
	ModelSchema  string             `json:"modelSchema,omitempty"`
	TrainingInfo string             `json:"inputExample,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	UserFullName string             `json:"userFullName,omitempty"`
}

// Deployment is a model serving deployment.
type Deployment struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ModelName    string `json:"modelName"`
	ModelVersion int    `json:"modelVersion"`
	ModelPath    string `json:"modelPath,omitempty"`
	ModelServer  string `json:"modelServer,omitempty"`
	ServingTool  string `json:"servingTool,omitempty"`
	Status       string `json:"status,omitempty"`
	Created      string `json:"created,omitempty"`
}

// GetModelRegistry returns the registry of the project.
func (c *Client) GetModelRegistry(ctx context.Context, projectID int) (*ModelRegistry, error) {
	const op = "get model registry"
	var resp itemsEnvelope[ModelRegistry]
	if err := c.get(ctx, op, fmt.Sprintf("project/%d/modelregistries", projectID), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, op, "project %d has no model registry", projectID)
	}
	return &resp.Items[0], nil
}

// ListModels returns all model versions in the registry.
func (c *Client) ListModels(ctx context.Context, projectID, registryID int) ([]Model, error) {
	var resp itemsEnvelope[Model]
	path := fmt.Sprintf("project/%d/modelregistries/%d/models", projectID, registryID)
	if err := c.get(ctx, "list models", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetModel returns one model version. version 0 selects the latest.
func (c *Client) GetModel(ctx context.Context, projectID, registryID int, name string, version int) (*Model, error) {
	const op = "get model"
	if version > 0 {
		var model Model
		path := fmt.Sprintf("project/%d/modelregistries/%d/models/%s", projectID, registryID,
			url.PathEscape(fmt.Sprintf("%s_%d", name, version)))
		if err := c.get(ctx, op, path, nil, &model); err != nil {
			return nil, err
		}
		return &model, nil
	}

	models, err := c.ListModels(ctx, projectID, registryID)
	if err != nil {
		return nil, err
	}
	var latest *Model
	for i := range models {
		if models[i].Name != name {
			continue
		}
		if latest == nil || models[i].Version > latest.Version {
			latest = &models[i]
		}
	}
	if latest == nil {
		return nil, NewError(KindNotFound, op, "model %q not found in the registry", name)
	}
	return latest, nil
}

// ListDeployments returns all serving deployments of the project.
func (c *Client) ListDeployments(ctx context.Context, projectID int) ([]Deployment, error) {
	var deployments []Deployment
	if err := c.get(ctx, "list deployments", fmt.Sprintf("project/%d/serving", projectID), nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// CreateDeployment creates a serving deployment for a registered model.
// An empty deployment name defaults to the model name.
func (c *Client) CreateDeployment(ctx context.Context, projectID int, projectName, deploymentName string, model *Model) (*Deployment, error) {
	const op = "create deployment"
	if deploymentName == "" {
		deploymentName = model.Name
	}

	req := Deployment{
		Name:         deploymentName,
		ModelName:    model.Name,
		ModelVersion: model.Version,
		ModelPath:    fmt.Sprintf("/Projects/%s/Models/%s/%d", projectName, model.Name, model.Version),
	}
	var created Deployment
	if err := c.put(ctx, op, fmt.Sprintf("project/%d/serving", projectID), nil, req, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created = req
	}
	return &created, nil
}
