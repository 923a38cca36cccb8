// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/udf"
)

func (r *Registry) registerTransformationTools() {
	r.write(tool("create_transformation_function",
		"Register a transformation function with the feature store. The source must define exactly one function; parameters named statistics and context are bound by the runtime.",
		schema(map[string]any{
			"transformation_function_code": stringProp("Source code of the transformation function"),
			"return_types":                 stringArrayProp("Output type per returned value, e.g. [\"float\"] or [\"float\", \"int\"]"),
			"name":                         stringProp("Registered name, defaults to the function name"),
			"execution_mode":               enumProp("Execution mode", "default", "python", "pandas"),
			"drop_features":                stringArrayProp("Input features to drop after the transformation is applied"),
			"output_column_names":          stringArrayProp("Names for the output columns"),
			"version":                      numberProp("Function version, default 1"),
			"project_name":                 stringProp("Project whose feature store to use"),
		}, "transformation_function_code", "return_types")),
		r.handleCreateTransformationFunction)

	r.read(tool("get_transformation_function",
		"Get a registered transformation function by name.",
		schema(map[string]any{
			"name":         stringProp("Transformation function name"),
			"version":      numberProp("Function version, latest when omitted"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleGetTransformationFunction)

	r.destructive(tool("delete_transformation_function",
		"Delete a registered transformation function.",
		schema(map[string]any{
			"name":         stringProp("Transformation function to delete"),
			"version":      numberProp("Function version, latest when omitted"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleDeleteTransformationFunction)

	r.read(tool("list_transformation_functions",
		"List all transformation functions registered with the feature store.",
		schema(map[string]any{
			"project_name": stringProp("Project whose feature store to use"),
		})),
		r.handleListTransformationFunctions)

	r.read(tool("test_transformation_function",
		"Run transformation function source against sample input without registering it.",
		schema(map[string]any{
			"function_code":     stringProp("Source code of the transformation function"),
			"input_data":        objectProp("Sample input, one entry per function parameter"),
			"return_types":      stringArrayProp("Output type per returned value"),
			"context_variables": objectProp("Values bound to a parameter named context"),
		}, "function_code", "input_data")),
		r.handleTestTransformationFunction)

	r.write(tool("create_transformation_function_with_statistics",
		"Register a transformation function whose statistics parameter receives training dataset statistics for the named features.",
		schema(map[string]any{
			"transformation_function_code":  stringProp("Source code, must declare a statistics parameter"),
			"return_types":                  stringArrayProp("Output type per returned value"),
			"feature_names_with_statistics": stringArrayProp("Features whose statistics the function reads"),
			"name":                          stringProp("Registered name, defaults to the function name"),
			"execution_mode":                enumProp("Execution mode", "default", "python", "pandas"),
			"drop_features":                 stringArrayProp("Input features to drop after the transformation is applied"),
			"output_column_names":           stringArrayProp("Names for the output columns"),
			"version":                       numberProp("Function version, default 1"),
			"project_name":                  stringProp("Project whose feature store to use"),
		}, "transformation_function_code", "return_types", "feature_names_with_statistics")),
		r.handleCreateTransformationFunctionWithStatistics)

	r.read(tool("apply_transformation_function",
		"Apply a registered transformation function to input data and return the transformed output.",
		schema(map[string]any{
			"name":              stringProp("Transformation function to apply"),
			"version":           numberProp("Function version, latest when omitted"),
			"input_data":        objectProp("Input values, one entry per function parameter"),
			"context_variables": objectProp("Values bound to a parameter named context"),
			"feature_group_name": stringProp(
				"Feature group whose statistics back a statistics parameter"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "name", "input_data")),
		r.handleApplyTransformationFunction)
}

type createTransformationArgs struct {
	SourceCode         string   `json:"transformation_function_code"`
	ReturnTypes        []string `json:"return_types"`
	Name               string   `json:"name"`
	ExecutionMode      string   `json:"execution_mode"`
	DropFeatures       []string `json:"drop_features"`
	OutputColumnNames  []string `json:"output_column_names"`
	Version            int      `json:"version"`
	ProjectName        string   `json:"project_name"`
	StatisticsFeatures []string `json:"feature_names_with_statistics"`
}

// createTransformation loads the source through the sandboxed loader to
// validate it before registering it with the backend. The loaded
// signature decides the default name and the transformation shape.
func (r *Registry) createTransformation(ctx context.Context, a createTransformationArgs, requireStatistics bool) (any, error) {
	const op = "create transformation function"
	if len(a.ReturnTypes) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, op, "return_types is required")
	}
	mode, err := hopsworks.ParseExecutionMode(a.ExecutionMode)
	if err != nil {
		return nil, err
	}

	fn, err := r.loader.Load(a.SourceCode)
	if err != nil {
		return nil, err
	}
	if requireStatistics && !hasParameter(fn, "statistics") {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, op,
			"the function must declare a statistics parameter")
	}

	name := a.Name
	if name == "" {
		name = fn.Name
	}
	version := a.Version
	if version <= 0 {
		version = 1
	}

	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	tf, err := session.Client().CreateTransformationFunction(ctx, fs.ProjectID, fs.ID, hopsworks.TransformationFunction{
		Name:               name,
		Version:            version,
		SourceCode:         a.SourceCode,
		OutputTypes:        a.ReturnTypes,
		OutputColumnNames:  a.OutputColumnNames,
		ExecutionMode:      mode,
		DropFeatures:       a.DropFeatures,
		StatisticsFeatures: a.StatisticsFeatures,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"status":                   "created",
		"id":                       tf.ID,
		"name":                     tf.Name,
		"version":                  tf.Version,
		"execution_mode":           string(mode),
		"return_types":             a.ReturnTypes,
		"output_column_names":      tf.OutputColumnNames,
		"dropped_features":         a.DropFeatures,
		"features_with_statistics": a.StatisticsFeatures,
		"transformation_pattern":   string(fn.Shape(len(a.ReturnTypes))),
	}, nil
}

func (r *Registry) handleCreateTransformationFunction(ctx context.Context, args json.RawMessage) (any, error) {
	var a createTransformationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	a.StatisticsFeatures = nil
	return r.createTransformation(ctx, a, false)
}

func (r *Registry) handleCreateTransformationFunctionWithStatistics(ctx context.Context, args json.RawMessage) (any, error) {
	var a createTransformationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.StatisticsFeatures) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "create transformation function",
			"feature_names_with_statistics is required")
	}
	return r.createTransformation(ctx, a, true)
}

type transformationRef struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	ProjectName string `json:"project_name"`
}

func (r *Registry) handleGetTransformationFunction(ctx context.Context, args json.RawMessage) (any, error) {
	var a transformationRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	tf, err := session.Client().GetTransformationFunction(ctx, fs.ProjectID, fs.ID, a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "transformation_function": tf}, nil
}

func (r *Registry) handleDeleteTransformationFunction(ctx context.Context, args json.RawMessage) (any, error) {
	var a transformationRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	tf, err := session.Client().GetTransformationFunction(ctx, fs.ProjectID, fs.ID, a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteTransformationFunction(ctx, fs.ProjectID, fs.ID, tf.ID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": tf.Name, "version": tf.Version}, nil
}

func (r *Registry) handleListTransformationFunctions(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureStoreArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	tfs, err := session.Client().ListTransformationFunctions(ctx, fs.ProjectID, fs.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(tfs), "transformation_functions": tfs}, nil
}

type testTransformationArgs struct {
	SourceCode       string         `json:"function_code"`
	InputData        map[string]any `json:"input_data"`
	ReturnTypes      []string       `json:"return_types"`
	ContextVariables map[string]any `json:"context_variables"`
}

func (r *Registry) handleTestTransformationFunction(ctx context.Context, args json.RawMessage) (any, error) {
	var a testTransformationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	fn, err := r.loader.Load(a.SourceCode)
	if err != nil {
		return nil, err
	}
	out, err := fn.Invoke(a.InputData, udf.InvokeOptions{Context: a.ContextVariables})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":                 "ok",
		"function_name":          fn.Name,
		"parameters":             fn.DataParameters(),
		"input":                  a.InputData,
		"output":                 out,
		"transformation_pattern": string(fn.Shape(len(a.ReturnTypes))),
	}, nil
}

type applyTransformationArgs struct {
	Name                string         `json:"name"`
	Version             int            `json:"version"`
	InputData           map[string]any `json:"input_data"`
	ContextVariables    map[string]any `json:"context_variables"`
	FeatureGroupName    string         `json:"feature_group_name"`
	FeatureGroupVersion int            `json:"feature_group_version"`
	ProjectName         string         `json:"project_name"`
}

func (r *Registry) handleApplyTransformationFunction(ctx context.Context, args json.RawMessage) (any, error) {
	var a applyTransformationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	tf, err := session.Client().GetTransformationFunction(ctx, fs.ProjectID, fs.ID, a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	fn, err := r.loader.Load(tf.SourceCode)
	if err != nil {
		return nil, err
	}

	var stats udf.TransformationStatistics
	if hasParameter(fn, "statistics") && a.FeatureGroupName != "" {
		ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
		_, _, fg, err := r.resolveFeatureGroup(ctx, ref)
		if err != nil {
			return nil, err
		}
		fgStats, err := session.Client().GetFeatureGroupStatistics(ctx, fs.ProjectID, fs.ID, fg.ID, "", tf.StatisticsFeatures)
		if err != nil {
			return nil, err
		}
		stats = transformationStatistics(fgStats, tf.StatisticsFeatures)
	}

	out, err := fn.Invoke(a.InputData, udf.InvokeOptions{Statistics: stats, Context: a.ContextVariables})
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	mergeFunctionOutput(result, tf, fn, out)
	return map[string]any{
		"status":        "ok",
		"function_name": fn.Name,
		"version":       tf.Version,
		"input":         a.InputData,
		"output":        result,
	}, nil
}

func hasParameter(fn *udf.Function, name string) bool {
	for _, p := range fn.Parameters {
		if p.Name == name {
			return true
		}
	}
	return false
}

// transformationStatistics narrows feature group statistics to the
// features a transformation function declares an interest in. An empty
// name list exposes everything the computation covered.
func transformationStatistics(stats *hopsworks.Statistics, names []string) udf.TransformationStatistics {
	out := udf.TransformationStatistics{}
	include := func(name string) bool {
		if len(names) == 0 {
			return true
		}
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
	for name, fs := range stats.Features {
		if !include(name) {
			continue
		}
		out[name] = udf.FeatureStatistics{
			Min:    fs.Min,
			Max:    fs.Max,
			Mean:   fs.Mean,
			Stddev: fs.StdDev,
			Count:  fs.Count,
		}
	}
	return out
}
