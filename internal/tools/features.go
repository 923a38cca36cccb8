// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerFeatureTools() {
	r.write(tool("create_feature",
		"Append a new feature (column) to an existing feature group.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to extend"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"name":                  stringProp("Feature name"),
			"type":                  stringProp("Offline data type, e.g. int, bigint, float, string"),
			"description":           stringProp("Feature description"),
			"online_type":           stringProp("Online store type override"),
			"default_value":         stringProp("Default value for existing rows"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "name", "type")),
		r.handleCreateFeature)

	r.write(tool("update_feature_description",
		"Update the description of a single feature inside a feature group or external feature group.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group containing the feature"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"feature_name":          stringProp("Feature to update"),
			"description":           stringProp("New description"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "feature_name", "description")),
		r.handleUpdateFeatureDescription)

	r.read(tool("get_feature_info",
		"Get the schema details of a single feature in a feature group.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group containing the feature"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"feature_name":          stringProp("Feature to describe"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "feature_name")),
		r.handleGetFeatureInfo)

	r.read(tool("search_features",
		"Search feature names across all feature groups with a SQL LIKE pattern (% and _ wildcards).",
		schema(map[string]any{
			"pattern":      stringProp("LIKE pattern, e.g. %amount% or user\\_id"),
			"project_name": stringProp("Project whose feature store to search"),
		}, "pattern")),
		r.handleSearchFeatures)

	r.read(tool("list_feature_statistics",
		"List descriptive statistics per feature of a feature group.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to inspect"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name")),
		r.handleListFeatureStatistics)
}

// featureRef addresses one feature inside a feature group.
type featureRef struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	FeatureName         string `json:"feature_name"`
	ProjectName         string `json:"project_name"`
}

func (ref featureRef) groupRef() featureGroupRef {
	return featureGroupRef{Name: ref.FeatureGroupName, Version: ref.FeatureGroupVersion, ProjectName: ref.ProjectName}
}

type createFeatureArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	Description         string `json:"description"`
	OnlineType          string `json:"online_type"`
	DefaultValue        string `json:"default_value"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleCreateFeature(ctx context.Context, args json.RawMessage) (any, error) {
	var a createFeatureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if fg.HasColumn(a.Name) {
		return nil, hopsworks.NewError(hopsworks.KindConflict, "create feature",
			"feature %q already exists in feature group %q", a.Name, fg.Name)
	}

	feature := hopsworks.Feature{
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		OnlineType:  a.OnlineType,
	}
	if a.DefaultValue != "" {
		feature.DefaultValue = a.DefaultValue
	}
	updated, err := session.Client().AppendFeature(ctx, fs.ProjectID, fs.ID, fg.ID, feature)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "feature_group": updated}, nil
}

type updateFeatureDescriptionArgs struct {
	featureRef
	Description string `json:"description"`
}

func (r *Registry) handleUpdateFeatureDescription(ctx context.Context, args json.RawMessage) (any, error) {
	var a updateFeatureDescriptionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	// Regular feature groups first, external ones as fallback.
	fg, err := session.Client().GetFeatureGroup(ctx, fs.ProjectID, fs.ID, a.FeatureGroupName, a.groupRef().version())
	if err != nil {
		if !hopsworks.IsNotFound(err) {
			return nil, err
		}
		ext, extErr := session.Client().GetExternalFeatureGroup(ctx, fs.ProjectID, fs.ID, a.FeatureGroupName, a.groupRef().version())
		if extErr != nil {
			return nil, extErr
		}
		fg = &ext.FeatureGroup
	}
	if !fg.HasColumn(a.FeatureName) {
		return nil, hopsworks.NewError(hopsworks.KindNotFound, "update feature description",
			"feature %q not found in feature group %q", a.FeatureName, fg.Name)
	}

	updated, err := session.Client().UpdateFeatureDescription(ctx, fs.ProjectID, fs.ID, fg.ID, a.FeatureName, a.Description)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "feature_group": updated}, nil
}

func (r *Registry) handleGetFeatureInfo(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, _, fg, err := r.resolveFeatureGroup(ctx, a.groupRef())
	if err != nil {
		return nil, err
	}
	for _, f := range fg.Features {
		if strings.EqualFold(f.Name, a.FeatureName) {
			return map[string]any{
				"status":                "ok",
				"feature":               f,
				"feature_group_name":    fg.Name,
				"feature_group_version": fg.Version,
			}, nil
		}
	}
	return nil, hopsworks.NewError(hopsworks.KindNotFound, "get feature info",
		"feature %q not found in feature group %q", a.FeatureName, fg.Name)
}

type searchFeaturesArgs struct {
	Pattern     string `json:"pattern"`
	ProjectName string `json:"project_name"`
}

func (r *Registry) handleSearchFeatures(ctx context.Context, args json.RawMessage) (any, error) {
	var a searchFeaturesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	matches, err := session.Client().SearchFeatures(ctx, fs.ProjectID, fs.ID, a.Pattern)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(matches), "features": matches}, nil
}

func (r *Registry) handleListFeatureStatistics(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, a.groupRef())
	if err != nil {
		return nil, err
	}
	stats, err := session.Client().GetFeatureGroupStatistics(ctx, fs.ProjectID, fs.ID, fg.ID, "", nil)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":             "ok",
		"feature_group_name": fg.Name,
		"computation_time":   stats.ComputationTime,
		"features":           stats.Features,
	}, nil
}
