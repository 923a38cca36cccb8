// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerFeatureGroupTools() {
	r.write(tool("create_feature_group",
		"Create a feature group metadata object in the feature store.",
		schema(map[string]any{
			"name":               stringProp("Feature group name"),
			"version":            numberProp("Version, default 1"),
			"description":        stringProp("Free-text description"),
			"primary_key":        stringArrayProp("Primary key column names"),
			"partition_key":      stringArrayProp("Partition column names"),
			"event_time":         stringProp("Event time column name"),
			"online_enabled":     boolProp("Materialize to the online store as well"),
			"time_travel_format": stringProp("Time travel format, e.g. HUDI"),
			"features":           objectArrayProp("Explicit schema: objects with name, type, description, primary, partition"),
		}, "name")),
		r.handleCreateFeatureGroup)

	r.read(tool("get_feature_group",
		"Get a feature group by name and version.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleGetFeatureGroup)

	r.read(tool("list_feature_groups",
		"List all feature groups in the feature store.",
		schema(map[string]any{
			"project_name": stringProp("Project whose feature store to use"),
		})),
		r.handleListFeatureGroups)

	r.read(tool("get_feature_group_by_id",
		"Get a feature group by its numeric id.",
		schema(map[string]any{
			"feature_group_id": numberProp("Feature group id"),
			"project_name":     stringProp("Project whose feature store to use"),
		}, "feature_group_id")),
		r.handleGetFeatureGroupByID)

	r.read(tool("read_feature_group",
		"Read rows from a feature group, from the offline store, the online store, or as of a past point in time.",
		schema(map[string]any{
			"name":           stringProp("Feature group name"),
			"version":        numberProp("Version, default 1"),
			"project_name":   stringProp("Project whose feature store to use"),
			"limit":          numberProp("Maximum rows to return"),
			"online":         boolProp("Read from the online store"),
			"wallclock_time": stringProp("Time travel point, format YYYY-MM-DD HH:MM:SS"),
		}, "name")),
		r.handleReadFeatureGroup)

	r.write(tool("update_feature_group_description",
		"Update the description of a feature group.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"description":  stringProp("New description"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name", "description")),
		r.handleUpdateFeatureGroupDescription)

	r.destructive(tool("delete_feature_group",
		"Delete a feature group and all its data. This cannot be undone.",
		schema(map[string]any{
			"name":         stringProp("Feature group name"),
			"version":      numberProp("Version, default 1"),
			"project_name": stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleDeleteFeatureGroup)

	r.read(tool("get_feature_group_statistics",
		"Get descriptive statistics of a feature group, optionally at a past computation time or for selected features.",
		schema(map[string]any{
			"name":             stringProp("Feature group name"),
			"version":          numberProp("Version, default 1"),
			"project_name":     stringProp("Project whose feature store to use"),
			"computation_time": stringProp("Statistics computation time to fetch"),
			"feature_names":    stringArrayProp("Restrict to these features"),
		}, "name")),
		r.handleGetFeatureGroupStatistics)

	r.write(tool("compute_feature_group_statistics",
		"Trigger a statistics computation on a feature group.",
		schema(map[string]any{
			"name":           stringProp("Feature group name"),
			"version":        numberProp("Version, default 1"),
			"project_name":   stringProp("Project whose feature store to use"),
			"wallclock_time": stringProp("Compute statistics as of this commit time"),
		}, "name")),
		r.handleComputeFeatureGroupStatistics)
}

// featureGroupRef is the argument set shared by tools addressing one
// feature group by name.
type featureGroupRef struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	ProjectName string `json:"project_name"`
}

func (ref featureGroupRef) version() int {
	if ref.Version <= 0 {
		return 1
	}
	return ref.Version
}

// resolveFeatureGroup loads the feature group a tool call addresses.
func (r *Registry) resolveFeatureGroup(ctx context.Context, ref featureGroupRef) (*hopsworks.Session, *hopsworks.FeatureStore, *hopsworks.FeatureGroup, error) {
	session, fs, err := r.featureStore(ctx, ref.ProjectName)
	if err != nil {
		return nil, nil, nil, err
	}
	fg, err := session.Client().GetFeatureGroup(ctx, fs.ProjectID, fs.ID, ref.Name, ref.version())
	if err != nil {
		return nil, nil, nil, err
	}
	return session, fs, fg, nil
}

type createFeatureGroupArgs struct {
	Name             string              `json:"name"`
	Version          int                 `json:"version"`
	Description      string              `json:"description"`
	ProjectName      string              `json:"project_name"`
	PrimaryKey       []string            `json:"primary_key"`
	PartitionKey     []string            `json:"partition_key"`
	EventTime        string              `json:"event_time"`
	OnlineEnabled    bool                `json:"online_enabled"`
	TimeTravelFormat string              `json:"time_travel_format"`
	Features         []hopsworks.Feature `json:"features"`
}

func (r *Registry) handleCreateFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var a createFeatureGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	if a.Version <= 0 {
		a.Version = 1
	}
	req := hopsworks.CreateFeatureGroupRequest{
		Name:             a.Name,
		Version:          a.Version,
		Description:      a.Description,
		PrimaryKey:       a.PrimaryKey,
		PartitionKey:     a.PartitionKey,
		EventTime:        a.EventTime,
		OnlineEnabled:    a.OnlineEnabled,
		TimeTravelFormat: a.TimeTravelFormat,
		Features:         a.Features,
	}

	fg, err := session.Client().CreateFeatureGroup(ctx, fs.ProjectID, fs.ID, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "feature_group": fg}, nil
}

func (r *Registry) handleGetFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureGroupRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	_, _, fg, err := r.resolveFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_group": fg}, nil
}

func (r *Registry) handleListFeatureGroups(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureStoreArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	groups, err := session.Client().ListFeatureGroups(ctx, fs.ProjectID, fs.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(groups), "feature_groups": groups}, nil
}

type featureGroupIDArgs struct {
	FeatureGroupID int    `json:"feature_group_id"`
	ProjectName    string `json:"project_name"`
}

func (r *Registry) handleGetFeatureGroupByID(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureGroupIDArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	fg, err := session.Client().GetFeatureGroupByID(ctx, fs.ProjectID, fs.ID, a.FeatureGroupID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_group": fg}, nil
}

type readFeatureGroupArgs struct {
	featureGroupRef
	Limit         int    `json:"limit"`
	Online        bool   `json:"online"`
	WallclockTime string `json:"wallclock_time"`
}

func (r *Registry) handleReadFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var a readFeatureGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, a.featureGroupRef)
	if err != nil {
		return nil, err
	}
	result, err := session.Client().ReadFeatureGroup(ctx, fs.ProjectID, fs.ID, fg.ID, hopsworks.PreviewOptions{
		Limit:         r.rowLimit(a.Limit),
		Online:        a.Online,
		WallclockTime: a.WallclockTime,
	})
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

type updateFGDescriptionArgs struct {
	featureGroupRef
	Description string `json:"description"`
}

func (r *Registry) handleUpdateFeatureGroupDescription(ctx context.Context, args json.RawMessage) (any, error) {
	var a updateFGDescriptionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, a.featureGroupRef)
	if err != nil {
		return nil, err
	}
	updated, err := session.Client().UpdateFeatureGroupDescription(ctx, fs.ProjectID, fs.ID, fg.ID, a.Description)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "feature_group": updated}, nil
}

func (r *Registry) handleDeleteFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureGroupRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteFeatureGroup(ctx, fs.ProjectID, fs.ID, fg.ID); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": fg.Name, "version": fg.Version}, nil
}

type fgStatisticsArgs struct {
	featureGroupRef
	ComputationTime string   `json:"computation_time"`
	FeatureNames    []string `json:"feature_names"`
}

func (r *Registry) handleGetFeatureGroupStatistics(ctx context.Context, args json.RawMessage) (any, error) {
	var a fgStatisticsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, a.featureGroupRef)
	if err != nil {
		return nil, err
	}
	stats, err := session.Client().GetFeatureGroupStatistics(ctx, fs.ProjectID, fs.ID, fg.ID, a.ComputationTime, a.FeatureNames)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "statistics": stats}, nil
}

type computeFGStatisticsArgs struct {
	featureGroupRef
	WallclockTime string `json:"wallclock_time"`
}

func (r *Registry) handleComputeFeatureGroupStatistics(ctx context.Context, args json.RawMessage) (any, error) {
	var a computeFGStatisticsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, a.featureGroupRef)
	if err != nil {
		return nil, err
	}
	stats, err := session.Client().ComputeFeatureGroupStatistics(ctx, fs.ProjectID, fs.ID, fg.ID, a.WallclockTime)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "computed", "statistics": stats}, nil
}
