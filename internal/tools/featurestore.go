// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
)

func (r *Registry) registerFeatureStoreTools() {
	r.read(tool("get_feature_store",
		"Resolve a project's feature store handle. Defaults to the session project's own store.",
		schema(map[string]any{
			"project_name": stringProp("Project whose feature store to resolve"),
		})),
		r.handleGetFeatureStore)

	r.read(tool("execute_feature_store_query",
		"Run a read-only SQL query against the offline or online feature store.",
		schema(map[string]any{
			"query":        stringProp("SQL SELECT statement"),
			"project_name": stringProp("Project whose feature store to query"),
			"online":       boolProp("Query the online store instead of the offline store"),
			"limit":        numberProp("Maximum rows to return"),
		}, "query")),
		r.handleExecuteFeatureStoreQuery)
}

type featureStoreArgs struct {
	ProjectName string `json:"project_name"`
}

func (r *Registry) handleGetFeatureStore(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureStoreArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_store": fs}, nil
}

type executeQueryArgs struct {
	Query       string `json:"query"`
	ProjectName string `json:"project_name"`
	Online      bool   `json:"online"`
	Limit       int    `json:"limit"`
}

func (r *Registry) handleExecuteFeatureStoreQuery(ctx context.Context, args json.RawMessage) (any, error) {
	var a executeQueryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	result, err := session.Client().SQL(ctx, fs.ProjectID, fs.ID, a.Query, a.Online, nil, r.rowLimit(a.Limit))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "ok",
		"columns": result.Columns,
		"rows":    result.Rows,
		"count":   len(result.Rows),
	}, nil
}
