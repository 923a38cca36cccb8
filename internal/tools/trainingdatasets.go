// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerTrainingDatasetTools() {
	r.write(tool("create_training_dataset",
		"Create a standalone training dataset from a query plan over feature groups.",
		schema(map[string]any{
			"name":         stringProp("Training dataset name"),
			"version":      numberProp("Version, default 1"),
			"description":  stringProp("Free-text description"),
			"data_format":  enumProp("Output format", "parquet", "csv", "tsv", "tfrecords", "avro", "orc"),
			"coalesce":     boolProp("Coalesce the output into one file per split"),
			"seed":         numberProp("Random seed for splitting"),
			"splits":       objectArrayProp("Splits: objects with name and percentage"),
			"query":        objectProp("Query plan: base_name, base_version, selected_features, joins, filters"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name", "query")),
		r.handleCreateTrainingDataset)

	r.read(tool("get_training_dataset",
		"Get a training dataset by name and version.",
		schema(map[string]any{
			"name":         stringProp("Training dataset name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleGetTrainingDataset)

	r.destructive(tool("delete_training_dataset",
		"Delete a training dataset and its materialized files. This cannot be undone.",
		schema(map[string]any{
			"name":         stringProp("Training dataset name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleDeleteTrainingDataset)

	r.read(tool("read_training_dataset",
		"Read rows from a materialized training dataset, optionally from one split.",
		schema(map[string]any{
			"name":         stringProp("Training dataset name"),
			"version":      numberProp("Version, default 1"),
			"split":        stringProp("Split to read, e.g. train or test"),
			"limit":        numberProp("Maximum rows to return"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleReadTrainingDataset)

	r.write(tool("compute_training_dataset_statistics",
		"Trigger a statistics computation on a training dataset.",
		schema(map[string]any{
			"name":         stringProp("Training dataset name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleComputeTrainingDatasetStatistics)

	r.read(tool("get_serving_vector",
		"Look up the online serving vector of a training dataset by primary key.",
		schema(map[string]any{
			"name":         stringProp("Training dataset name"),
			"version":      numberProp("Version, default 1"),
			"entry":        objectProp("Primary key values"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name", "entry")),
		r.handleGetServingVector)
}

type trainingDatasetArgs struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	ProjectName string `json:"project_name"`
}

func (a trainingDatasetArgs) version() int {
	if a.Version <= 0 {
		return 1
	}
	return a.Version
}

func (r *Registry) resolveTrainingDataset(ctx context.Context, a trainingDatasetArgs) (*hopsworks.Session, *hopsworks.FeatureStore, *hopsworks.TrainingDataset, error) {
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, nil, nil, err
	}
	td, err := session.Client().GetTrainingDataset(ctx, fs.ProjectID, fs.ID, a.Name, a.version())
	if err != nil {
		return nil, nil, nil, err
	}
	return session, fs, td, nil
}

type createTrainingDatasetArgs struct {
	Name        string                           `json:"name"`
	Version     int                              `json:"version"`
	Description string                           `json:"description"`
	DataFormat  string                           `json:"data_format"`
	Coalesce    bool                             `json:"coalesce"`
	Seed        int64                            `json:"seed"`
	Splits      []hopsworks.TrainingDatasetSplit `json:"splits"`
	Query       *createFVQuery                   `json:"query"`
	ProjectName string                           `json:"project_name"`
}

func (r *Registry) handleCreateTrainingDataset(ctx context.Context, args json.RawMessage) (any, error) {
	var a createTrainingDatasetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Query == nil || a.Query.BaseName == "" {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "create training dataset", "query.base_name is required")
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	plan, err := r.buildQueryPlan(ctx, session, fs, analyzeQueryArgs{
		BaseName:         a.Query.BaseName,
		BaseVersion:      a.Query.BaseVersion,
		SelectedFeatures: a.Query.SelectedFeatures,
		Joins:            a.Query.Joins,
		Filters:          a.Query.Filters,
		AsOfTime:         a.Query.AsOfTime,
		ProjectName:      a.ProjectName,
	})
	if err != nil {
		return nil, err
	}

	if a.Version <= 0 {
		a.Version = 1
	}
	td, err := session.Client().CreateTrainingDataset(ctx, fs.ProjectID, fs.ID, hopsworks.CreateTrainingDatasetRequest{
		Name:        a.Name,
		Version:     a.Version,
		Description: a.Description,
		DataFormat:  a.DataFormat,
		Coalesce:    a.Coalesce,
		Seed:        a.Seed,
		Splits:      a.Splits,
		Query:       plan,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "training_dataset": td}, nil
}

func (r *Registry) handleGetTrainingDataset(ctx context.Context, args json.RawMessage) (any, error) {
	var a trainingDatasetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, _, td, err := r.resolveTrainingDataset(ctx, a)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "training_dataset": td}, nil
}

func (r *Registry) handleDeleteTrainingDataset(ctx context.Context, args json.RawMessage) (any, error) {
	var a trainingDatasetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, td, err := r.resolveTrainingDataset(ctx, a)
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteTrainingDataset(ctx, fs.ProjectID, fs.ID, td.ID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": td.Name, "version": td.Version}, nil
}

type readTrainingDatasetArgs struct {
	trainingDatasetArgs
	Split string `json:"split"`
	Limit int    `json:"limit"`
}

func (r *Registry) handleReadTrainingDataset(ctx context.Context, args json.RawMessage) (any, error) {
	var a readTrainingDatasetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, td, err := r.resolveTrainingDataset(ctx, a.trainingDatasetArgs)
	if err != nil {
		return nil, err
	}
	if a.Split != "" && !td.HasSplit(a.Split) {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "read training dataset",
			"training dataset %q has no split %q", td.Name, a.Split)
	}
	result, err := session.Client().ReadTrainingDataset(ctx, fs, td, a.Split, r.rowLimit(a.Limit))
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "columns": result.Columns, "rows": result.Rows, "count": len(result.Rows)}, nil
}

func (r *Registry) handleComputeTrainingDatasetStatistics(ctx context.Context, args json.RawMessage) (any, error) {
	var a trainingDatasetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, td, err := r.resolveTrainingDataset(ctx, a)
	if err != nil {
		return nil, err
	}
	stats, err := session.Client().ComputeTrainingDatasetStatistics(ctx, fs.ProjectID, fs.ID, td.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "computed", "statistics": stats}, nil
}

type servingVectorArgs struct {
	trainingDatasetArgs
	Entry map[string]any `json:"entry"`
}

func (r *Registry) handleGetServingVector(ctx context.Context, args json.RawMessage) (any, error) {
	var a servingVectorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Entry) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "get serving vector", "entry is required")
	}
	session, fs, td, err := r.resolveTrainingDataset(ctx, a.trainingDatasetArgs)
	if err != nil {
		return nil, err
	}
	vector, err := session.Client().TrainingDatasetServingVector(ctx, fs, td.ID, a.Entry)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "vector": vector}, nil
}
