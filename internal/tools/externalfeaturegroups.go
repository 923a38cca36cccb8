// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerExternalFeatureGroupTools() {
	r.write(tool("create_external_feature_group",
		"Create an external (on-demand) feature group backed by a storage connector.",
		schema(map[string]any{
			"name":              stringProp("Feature group name"),
			"version":           numberProp("Version, default 1"),
			"description":       stringProp("Free-text description"),
			"storage_connector": stringProp("Name of the storage connector to read through"),
			"query":             stringProp("SQL query against the external source (JDBC-style connectors)"),
			"data_format":       stringProp("Data format for file-based connectors, e.g. parquet"),
			"path":              stringProp("Path within the external storage"),
			"primary_key":       stringArrayProp("Primary key column names"),
			"event_time":        stringProp("Event time column name"),
			"online_enabled":    boolProp("Allow materializing rows to the online store"),
			"project_name":      stringProp("Project whose feature store to use"),
		}, "name", "storage_connector")),
		r.handleCreateExternalFeatureGroup)

	r.read(tool("get_external_feature_group",
		"Get an external feature group by name and version.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleGetExternalFeatureGroup)

	r.read(tool("list_external_feature_groups",
		"List all external feature groups in the feature store.",
		schema(map[string]any{
			"project_name": stringProp("Project whose feature store to use"),
		})),
		r.handleListExternalFeatureGroups)

	r.destructive(tool("delete_external_feature_group",
		"Delete an external feature group's metadata. This cannot be undone.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleDeleteExternalFeatureGroup)

	r.write(tool("update_external_feature_group_description",
		"Update the description of an external feature group.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"description":  stringProp("New description"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name", "description")),
		r.handleUpdateExternalFeatureGroupDescription)

	r.write(tool("insert_into_online_store",
		"Materialize rows of an external feature group into the online store for low-latency serving.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"rows":         objectArrayProp("Rows to insert, one object per row"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name", "rows")),
		r.handleInsertIntoOnlineStore)
}

func (r *Registry) resolveExternalFeatureGroup(ctx context.Context, ref featureGroupRef) (*hopsworks.Session, *hopsworks.FeatureStore, *hopsworks.ExternalFeatureGroup, error) {
	session, fs, err := r.featureStore(ctx, ref.ProjectName)
	if err != nil {
		return nil, nil, nil, err
	}
	fg, err := session.Client().GetExternalFeatureGroup(ctx, fs.ProjectID, fs.ID, ref.Name, ref.version())
	if err != nil {
		return nil, nil, nil, err
	}
	return session, fs, fg, nil
}

type createExternalFGArgs struct {
	Name             string   `json:"name"`
	Version          int      `json:"version"`
	Description      string   `json:"description"`
	StorageConnector string   `json:"storage_connector"`
	Query            string   `json:"query"`
	DataFormat       string   `json:"data_format"`
	Path             string   `json:"path"`
	PrimaryKey       []string `json:"primary_key"`
	EventTime        string   `json:"event_time"`
	OnlineEnabled    bool     `json:"online_enabled"`
	ProjectName      string   `json:"project_name"`
}

func (r *Registry) handleCreateExternalFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var a createExternalFGArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	connector, err := session.Client().GetStorageConnector(ctx, fs.ProjectID, fs.ID, a.StorageConnector)
	if err != nil {
		return nil, err
	}
	if a.Version <= 0 {
		a.Version = 1
	}
	fg, err := session.Client().CreateExternalFeatureGroup(ctx, fs.ProjectID, fs.ID, hopsworks.CreateExternalFeatureGroupRequest{
		Name:             a.Name,
		Version:          a.Version,
		Description:      a.Description,
		StorageConnector: connector,
		Query:            a.Query,
		DataFormat:       a.DataFormat,
		Path:             a.Path,
		PrimaryKey:       a.PrimaryKey,
		EventTime:        a.EventTime,
		OnlineEnabled:    a.OnlineEnabled,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "feature_group": fg}, nil
}

func (r *Registry) handleGetExternalFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureGroupRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	_, _, fg, err := r.resolveExternalFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_group": fg}, nil
}

func (r *Registry) handleListExternalFeatureGroups(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureStoreArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	groups, err := session.Client().ListExternalFeatureGroups(ctx, fs.ProjectID, fs.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(groups), "feature_groups": groups}, nil
}

func (r *Registry) handleDeleteExternalFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureGroupRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveExternalFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteExternalFeatureGroup(ctx, fs.ProjectID, fs.ID, fg.ID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": fg.Name, "version": fg.Version}, nil
}

func (r *Registry) handleUpdateExternalFeatureGroupDescription(ctx context.Context, args json.RawMessage) (any, error) {
	var a updateFGDescriptionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveExternalFeatureGroup(ctx, a.featureGroupRef)
	if err != nil {
		return nil, err
	}
	updated, err := session.Client().UpdateExternalFeatureGroupDescription(ctx, fs.ProjectID, fs.ID, fg.ID, a.Description)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "feature_group": updated}, nil
}

type insertOnlineArgs struct {
	featureGroupRef
	Rows []map[string]any `json:"rows"`
}

func (r *Registry) handleInsertIntoOnlineStore(ctx context.Context, args json.RawMessage) (any, error) {
	var a insertOnlineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Rows) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "insert into online store", "rows must not be empty")
	}
	session, fs, fg, err := r.resolveExternalFeatureGroup(ctx, a.featureGroupRef)
	if err != nil {
		return nil, err
	}
	if err := session.Client().InsertExternalIntoOnlineStore(ctx, fs.ProjectID, fs.ID, fg.ID, a.Rows); err != nil {
		return nil, err
	}
	return map[string]any{"status": "inserted", "rows": len(a.Rows)}, nil
}
