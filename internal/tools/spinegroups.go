// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerSpineGroupTools() {
	r.write(tool("get_or_create_spine_group",
		"Create or retrieve a spine group. Spine data stays in the server session and is never materialized to the feature store.",
		schema(map[string]any{
			"name":        stringProp("Spine group name"),
			"data":        stringProp("JSON array of row objects"),
			"primary_key": stringArrayProp("Primary key column names"),
			"version":     numberProp("Version; omitted picks the next free version"),
			"description": stringProp("Free-text description"),
			"event_time":  stringProp("Event time column name"),
		}, "name", "data", "primary_key")),
		r.handleGetOrCreateSpineGroup)

	r.read(tool("get_spine_group",
		"Get a spine group from the session store.",
		schema(map[string]any{
			"name":    stringProp("Spine group name"),
			"version": numberProp("Version; omitted picks the latest"),
		}, "name")),
		r.handleGetSpineGroup)

	r.write(tool("update_spine_group_data",
		"Replace the rows of an existing spine group.",
		schema(map[string]any{
			"name":    stringProp("Spine group name"),
			"version": numberProp("Version; omitted picks the latest"),
			"data":    stringProp("JSON array of row objects"),
		}, "name", "data")),
		r.handleUpdateSpineGroupData)

	r.destructive(tool("delete_spine_group",
		"Delete a spine group from the session store.",
		schema(map[string]any{
			"name":    stringProp("Spine group name"),
			"version": numberProp("Version; omitted picks the latest"),
		}, "name")),
		r.handleDeleteSpineGroup)

	r.write(tool("create_feature_view_with_spine",
		"Create a feature view joining a spine group (labels) with a feature group (features).",
		schema(map[string]any{
			"name":                  stringProp("Feature view name"),
			"version":               numberProp("Feature view version, default 1"),
			"spine_group_name":      stringProp("Spine group supplying the labels"),
			"spine_group_version":   numberProp("Spine group version; omitted picks the latest"),
			"feature_group_name":    stringProp("Feature group supplying the features"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"join_key":              stringArrayProp("Join columns; defaults to the spine group's primary key"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "name", "spine_group_name", "feature_group_name")),
		r.handleCreateFeatureViewWithSpine)

	r.read(tool("get_batch_data_with_spine",
		"Read batch data through a feature view restricted to the entities in the supplied spine rows.",
		schema(map[string]any{
			"feature_view_name":    stringProp("Feature view to read through"),
			"feature_view_version": numberProp("Feature view version, default 1"),
			"spine_data":           stringProp("JSON array of row objects holding the entity keys"),
			"limit":                numberProp("Maximum rows to return"),
			"project_name":         stringProp("Project whose feature store to use"),
		}, "feature_view_name", "spine_data")),
		r.handleGetBatchDataWithSpine)

	r.write(tool("create_train_test_split_with_spine",
		"Materialize a train/test split restricted to the entities in the supplied spine rows.",
		schema(map[string]any{
			"feature_view_name":    stringProp("Feature view to materialize from"),
			"feature_view_version": numberProp("Feature view version, default 1"),
			"spine_data":           stringProp("JSON array of row objects holding the entity keys"),
			"test_size":            floatProp("Fraction of data in the test split, default 0.2"),
			"project_name":         stringProp("Project whose feature store to use"),
		}, "feature_view_name", "spine_data")),
		r.handleCreateTrainTestSplitWithSpine)
}

type spineGroupArgs struct {
	Name        string   `json:"name"`
	Version     int      `json:"version"`
	Description string   `json:"description"`
	Data        string   `json:"data"`
	PrimaryKey  []string `json:"primary_key"`
	EventTime   string   `json:"event_time"`
}

// spineGroupView is the response shape of spine group tools; rows never
// leave the server, only the row count does.
func spineGroupView(sg *hopsworks.SpineGroup) map[string]any {
	return map[string]any{
		"name":        sg.Name,
		"version":     sg.Version,
		"description": sg.Description,
		"primary_key": sg.PrimaryKey,
		"event_time":  sg.EventTime,
		"features":    sg.Features,
		"row_count":   len(sg.Rows),
	}
}

func (r *Registry) handleGetOrCreateSpineGroup(_ context.Context, args json.RawMessage) (any, error) {
	var a spineGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	rows, err := hopsworks.ParseSpineRows(a.Data)
	if err != nil {
		return nil, err
	}
	sg, err := session.SpineGroups().GetOrCreate(hopsworks.GetOrCreateSpineGroupParams{
		Name:        a.Name,
		Version:     a.Version,
		Description: a.Description,
		PrimaryKey:  a.PrimaryKey,
		EventTime:   a.EventTime,
		Rows:        rows,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "spine_group": spineGroupView(sg)}, nil
}

func (r *Registry) handleGetSpineGroup(_ context.Context, args json.RawMessage) (any, error) {
	var a spineGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	sg, err := session.SpineGroups().Get(a.Name, a.Version)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "spine_group": spineGroupView(sg)}, nil
}

func (r *Registry) handleUpdateSpineGroupData(_ context.Context, args json.RawMessage) (any, error) {
	var a spineGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	rows, err := hopsworks.ParseSpineRows(a.Data)
	if err != nil {
		return nil, err
	}
	sg, err := session.SpineGroups().UpdateData(a.Name, a.Version, rows)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "spine_group": spineGroupView(sg)}, nil
}

func (r *Registry) handleDeleteSpineGroup(_ context.Context, args json.RawMessage) (any, error) {
	var a spineGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.SpineGroups().Delete(a.Name, a.Version); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": a.Name}, nil
}

// spineBaseGroup turns a session spine group into the feature-group
// shape the query plan builder expects.
func spineBaseGroup(sg *hopsworks.SpineGroup) *hopsworks.FeatureGroup {
	return &hopsworks.FeatureGroup{
		Name:       sg.Name,
		Version:    sg.Version,
		PrimaryKey: sg.PrimaryKey,
		EventTime:  sg.EventTime,
		Features:   sg.Features,
		Type:       "spineFeaturegroupDTO",
	}
}

type spineFeatureViewArgs struct {
	Name                string   `json:"name"`
	Version             int      `json:"version"`
	SpineGroupName      string   `json:"spine_group_name"`
	SpineGroupVersion   int      `json:"spine_group_version"`
	FeatureGroupName    string   `json:"feature_group_name"`
	FeatureGroupVersion int      `json:"feature_group_version"`
	JoinKey             []string `json:"join_key"`
	ProjectName         string   `json:"project_name"`
}

func (r *Registry) handleCreateFeatureViewWithSpine(ctx context.Context, args json.RawMessage) (any, error) {
	var a spineFeatureViewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	sg, err := session.SpineGroups().Get(a.SpineGroupName, a.SpineGroupVersion)
	if err != nil {
		return nil, err
	}
	fg, err := r.lookupQueryGroup(ctx, session, fs, a.FeatureGroupName, a.FeatureGroupVersion)
	if err != nil {
		return nil, err
	}

	joinKey := a.JoinKey
	if len(joinKey) == 0 {
		joinKey = sg.PrimaryKey
	}
	plan := hopsworks.NewQueryPlan(spineBaseGroup(sg))
	if err := plan.Join(fg, joinKey, "inner", ""); err != nil {
		return nil, err
	}

	if a.Version <= 0 {
		a.Version = 1
	}
	fv, err := session.Client().CreateFeatureView(ctx, fs.ProjectID, fs.ID, hopsworks.CreateFeatureViewRequest{
		Name:    a.Name,
		Version: a.Version,
		Query:   plan,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       "created",
		"feature_view": fv,
		"spine_group":  a.SpineGroupName,
		"join_key":     joinKey,
	}, nil
}

type spineBatchArgs struct {
	FeatureViewName    string  `json:"feature_view_name"`
	FeatureViewVersion int     `json:"feature_view_version"`
	SpineData          string  `json:"spine_data"`
	TestSize           float64 `json:"test_size"`
	Limit              int     `json:"limit"`
	ProjectName        string  `json:"project_name"`
}

func (a spineBatchArgs) viewRef() featureViewRef {
	return featureViewRef{Name: a.FeatureViewName, Version: a.FeatureViewVersion, ProjectName: a.ProjectName}
}

func (r *Registry) handleGetBatchDataWithSpine(ctx context.Context, args json.RawMessage) (any, error) {
	var a spineBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.viewRef())
	if err != nil {
		return nil, err
	}
	spine, err := hopsworks.ParseSpineRows(a.SpineData)
	if err != nil {
		return nil, err
	}
	if fv.Query == nil || fv.Query.Base == nil {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "get batch data with spine",
			"feature view %q has no query metadata", fv.Name)
	}

	result, err := session.Client().GetBatchData(ctx, fs, fv, hopsworks.BatchDataOptions{})
	if err != nil {
		return nil, err
	}

	keys := fv.Query.Base.PrimaryKey
	limit := r.rowLimit(a.Limit)
	var rows []map[string]any
	for _, row := range result.Rows {
		if !spineContains(spine, keys, row) {
			continue
		}
		rows = append(rows, row)
		if len(rows) >= limit {
			break
		}
	}
	return map[string]any{
		"status":  "ok",
		"columns": result.Columns,
		"rows":    rows,
		"count":   len(rows),
	}, nil
}

// spineContains reports whether a batch row matches the key columns of
// any spine row.
func spineContains(spine []map[string]any, keys []string, row map[string]any) bool {
	if len(keys) == 0 {
		return true
	}
	for _, sr := range spine {
		matched := true
		for _, key := range keys {
			if !valuesEqualFold(sr, row, key) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func valuesEqualFold(a, b map[string]any, key string) bool {
	av, aok := lookupFold(a, key)
	bv, bok := lookupFold(b, key)
	if !aok || !bok {
		return false
	}
	// JSON numbers decode as float64 on both sides, so == suffices for
	// the scalar types spine keys hold.
	return av == bv
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (r *Registry) handleCreateTrainTestSplitWithSpine(ctx context.Context, args json.RawMessage) (any, error) {
	var a spineBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TestSize == 0 {
		a.TestSize = 0.2
	}
	if a.TestSize <= 0 || a.TestSize >= 1 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "create train test split with spine",
			"test_size must be between 0 and 1 exclusive, got %v", a.TestSize)
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.viewRef())
	if err != nil {
		return nil, err
	}
	spine, err := hopsworks.ParseSpineRows(a.SpineData)
	if err != nil {
		return nil, err
	}

	td, exec, err := session.Client().CreateTrainingData(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, hopsworks.TrainingDataRequest{
		Splits: []hopsworks.TrainingDatasetSplit{
			{Name: "train", Percentage: 1 - a.TestSize},
			{Name: "test", Percentage: a.TestSize},
		},
	})
	if err != nil {
		return nil, err
	}

	testRows := int(float64(len(spine)) * a.TestSize)
	return map[string]any{
		"status":           "created",
		"training_dataset": td,
		"execution":        exec,
		"test_size":        a.TestSize,
		"spine_rows":       len(spine),
		"train_rows":       len(spine) - testRows,
		"test_rows":        testRows,
	}, nil
}
