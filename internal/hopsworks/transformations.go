// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ExecutionMode selects how a transformation function runs during batch
// and online operations.
type ExecutionMode string

const (
	ExecutionModeDefault ExecutionMode = "default"
	ExecutionModePython  ExecutionMode = "python"
	ExecutionModePandas  ExecutionMode = "pandas"
)

// ParseExecutionMode validates an execution mode name. Empty selects
// default.
func ParseExecutionMode(name string) (ExecutionMode, error) {
	switch ExecutionMode(name) {
	case "":
		return ExecutionModeDefault, nil
	case ExecutionModeDefault, ExecutionModePython, ExecutionModePandas:
		return ExecutionMode(name), nil
	default:
		return "", NewError(KindInvalidArgument, "transformation function",
			"unknown execution mode %q (expected default, python or pandas)", name)
	}
}

// TransformationFunction is a user-defined function registered with the
// feature store, applied on demand or at training and inference time.
type TransformationFunction struct {
	ID                 int           `json:"id,omitempty"`
	Name               string        `json:"name"`
	Version            int           `json:"version"`
	SourceCode         string        `json:"sourceCodeContent"`
	OutputTypes        []string      `json:"outputTypes,omitempty"`
	OutputColumnNames  []string      `json:"outputColumnNames,omitempty"`
	ExecutionMode      ExecutionMode `json:"executionMode,omitempty"`
	DropFeatures       []string      `json:"droppedFeatures,omitempty"`
	StatisticsFeatures []string      `json:"statisticsArgumentNames,omitempty"`
	TransformationType string        `json:"transformationType,omitempty"`
}

func tfRoot(projectID, fsID int) string {
	return fmt.Sprintf("project/%d/featurestores/%d/transformationfunctions", projectID, fsID)
}

// CreateTransformationFunction registers a transformation function.
func (c *Client) CreateTransformationFunction(ctx context.Context, projectID, fsID int, tf TransformationFunction) (*TransformationFunction, error) {
	const op = "create transformation function"
	if tf.Name == "" {
		return nil, NewError(KindInvalidArgument, op, "name is required")
	}
	if tf.SourceCode == "" {
		return nil, NewError(KindInvalidArgument, op, "source code is required")
	}
	var created TransformationFunction
	if err := c.post(ctx, op, tfRoot(projectID, fsID), nil, tf, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created = tf
	}
	return &created, nil
}

// GetTransformationFunction returns a registered function. version 0
// selects the latest.
func (c *Client) GetTransformationFunction(ctx context.Context, projectID, fsID int, name string, version int) (*TransformationFunction, error) {
	const op = "get transformation function"
	q := url.Values{}
	q.Set("name", name)
	if version > 0 {
		q.Set("version", strconv.Itoa(version))
	}
	var resp itemsEnvelope[TransformationFunction]
	if err := c.get(ctx, op, tfRoot(projectID, fsID), q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, op, "transformation function %q not found", name)
	}

	latest := &resp.Items[0]
	for i := range resp.Items[1:] {
		if resp.Items[i+1].Version > latest.Version {
			latest = &resp.Items[i+1]
		}
	}
	return latest, nil
}

// ListTransformationFunctions returns all registered functions.
func (c *Client) ListTransformationFunctions(ctx context.Context, projectID, fsID int) ([]TransformationFunction, error) {
	var resp itemsEnvelope[TransformationFunction]
	if err := c.get(ctx, "list transformation functions", tfRoot(projectID, fsID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// DeleteTransformationFunction removes a registered function.
func (c *Client) DeleteTransformationFunction(ctx context.Context, projectID, fsID, tfID int) error {
	return c.delete(ctx, "delete transformation function", fmt.Sprintf("%s/%d", tfRoot(projectID, fsID), tfID), nil)
}
