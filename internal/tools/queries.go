// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/exprfilter"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerQueryTools() {
	r.read(tool("execute_sql_query",
		"Run a SQL query against the feature store and return rows.",
		schema(map[string]any{
			"query":        stringProp("SQL SELECT statement"),
			"online":       boolProp("Query the online store"),
			"limit":        numberProp("Maximum rows to return"),
			"project_name": stringProp("Project whose feature store to query"),
		}, "query")),
		r.handleExecuteSQLQuery)

	r.read(tool("join_feature_groups",
		"Join two feature groups on common key columns and return the joined rows.",
		schema(map[string]any{
			"feature_group1_name":    stringProp("Left feature group"),
			"feature_group1_version": numberProp("Left version, default 1"),
			"feature_group2_name":    stringProp("Right feature group"),
			"feature_group2_version": numberProp("Right version, default 1"),
			"on":                     stringArrayProp("Key columns present on both sides"),
			"join_type":              enumProp("Join type", "inner", "left", "right", "outer"),
			"prefix":                 stringProp("Column prefix for the right side"),
			"limit":                  numberProp("Maximum rows to return"),
			"project_name":           stringProp("Project whose feature store to use"),
		}, "feature_group1_name", "feature_group2_name", "on")),
		r.handleJoinFeatureGroups)

	r.read(tool("filter_feature_group",
		"Read a feature group filtered by an expression like \"amount > 100\" or \"category == 'books'\". Operators: ==, >, <, >=, <=, like.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to filter"),
			"feature_group_version": numberProp("Version, default 1"),
			"filter_expression":     stringProp("Expression: column operator value"),
			"limit":                 numberProp("Maximum rows to return"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "filter_expression")),
		r.handleFilterFeatureGroup)

	r.read(tool("time_travel_query",
		"Read a feature group as of a past commit time, optionally excluding commits before a start time.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to read"),
			"feature_group_version": numberProp("Version, default 1"),
			"as_of_time":            stringProp("Read state as of this time, format YYYY-MM-DD HH:MM:SS"),
			"exclude_until_time":    stringProp("Exclude commits up to and including this time"),
			"limit":                 numberProp("Maximum rows to return"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "as_of_time")),
		r.handleTimeTravelQuery)

	r.read(tool("analyze_query_schema",
		"Analyze the output schema of a query plan (base group, joins, filters) without executing it.",
		schema(map[string]any{
			"base_name":         stringProp("Base feature group name"),
			"base_version":      numberProp("Base version, default 1"),
			"selected_features": stringArrayProp("Columns to select from the base group; empty selects all"),
			"joins":             objectArrayProp("Joins: objects with name, version, on, join_type, prefix"),
			"filters":           stringArrayProp("Filter expressions, e.g. \"amount > 10\""),
			"as_of_time":        stringProp("Time travel point for the base group"),
			"project_name":      stringProp("Project whose feature store to use"),
		}, "base_name")),
		r.handleAnalyzeQuerySchema)
}

type executeSQLArgs struct {
	Query       string `json:"query"`
	Online      bool   `json:"online"`
	Limit       int    `json:"limit"`
	ProjectName string `json:"project_name"`
}

func (r *Registry) handleExecuteSQLQuery(ctx context.Context, args json.RawMessage) (any, error) {
	var a executeSQLArgs
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
	return map[string]any{"status": "ok", "columns": result.Columns, "rows": result.Rows, "count": len(result.Rows)}, nil
}

// lookupQueryGroup resolves a feature group for query building, falling
// back to external feature groups the way the platform UI does.
func (r *Registry) lookupQueryGroup(ctx context.Context, session *hopsworks.Session, fs *hopsworks.FeatureStore, name string, version int) (*hopsworks.FeatureGroup, error) {
	if version <= 0 {
		version = 1
	}
	fg, err := session.Client().GetFeatureGroup(ctx, fs.ProjectID, fs.ID, name, version)
	if err == nil {
		return fg, nil
	}
	if !hopsworks.IsNotFound(err) {
		return nil, err
	}
	ext, extErr := session.Client().GetExternalFeatureGroup(ctx, fs.ProjectID, fs.ID, name, version)
	if extErr != nil {
		return nil, err
	}
	return &ext.FeatureGroup, nil
}

type joinFeatureGroupsArgs struct {
	FG1Name     string   `json:"feature_group1_name"`
	FG1Version  int      `json:"feature_group1_version"`
	FG2Name     string   `json:"feature_group2_name"`
	FG2Version  int      `json:"feature_group2_version"`
	On          []string `json:"on"`
	JoinType    string   `json:"join_type"`
	Prefix      string   `json:"prefix"`
	Limit       int      `json:"limit"`
	ProjectName string   `json:"project_name"`
}

func (r *Registry) handleJoinFeatureGroups(ctx context.Context, args json.RawMessage) (any, error) {
	var a joinFeatureGroupsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	left, err := r.lookupQueryGroup(ctx, session, fs, a.FG1Name, a.FG1Version)
	if err != nil {
		return nil, err
	}
	right, err := r.lookupQueryGroup(ctx, session, fs, a.FG2Name, a.FG2Version)
	if err != nil {
		return nil, err
	}

	joinType := a.JoinType
	if joinType == "outer" {
		joinType = "full"
	}
	plan := hopsworks.NewQueryPlan(left)
	if err := plan.Join(right, a.On, joinType, a.Prefix); err != nil {
		return nil, err
	}

	result, err := r.executePlan(ctx, session, fs, plan, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"join_type": joinType,
		"columns":   result.Columns,
		"rows":      result.Rows,
		"count":     len(result.Rows),
	}, nil
}

type filterFeatureGroupArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	FilterExpression    string `json:"filter_expression"`
	Limit               int    `json:"limit"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleFilterFeatureGroup(ctx context.Context, args json.RawMessage) (any, error) {
	var a filterFeatureGroupArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	fg, err := r.lookupQueryGroup(ctx, session, fs, a.FeatureGroupName, a.FeatureGroupVersion)
	if err != nil {
		return nil, err
	}

	filter, err := exprfilter.Compile(a.FilterExpression, exprfilter.ColumnResolverFunc(fg.HasColumn))
	if err != nil {
		return nil, err
	}
	plan := hopsworks.NewQueryPlan(fg)
	if err := plan.Filter(filter.Column, string(filter.Operator), filter.Literal.Value); err != nil {
		return nil, err
	}

	result, err := r.executePlan(ctx, session, fs, plan, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":            "ok",
		"filter_expression": a.FilterExpression,
		"columns":           result.Columns,
		"rows":              result.Rows,
		"count":             len(result.Rows),
	}, nil
}

type timeTravelArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	AsOfTime            string `json:"as_of_time"`
	ExcludeUntilTime    string `json:"exclude_until_time"`
	Limit               int    `json:"limit"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleTimeTravelQuery(ctx context.Context, args json.RawMessage) (any, error) {
	var a timeTravelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	fg, err := r.lookupQueryGroup(ctx, session, fs, a.FeatureGroupName, a.FeatureGroupVersion)
	if err != nil {
		return nil, err
	}

	result, err := session.Client().ReadFeatureGroup(ctx, fs.ProjectID, fs.ID, fg.ID, hopsworks.PreviewOptions{
		Limit:         r.rowLimit(a.Limit),
		WallclockTime: a.AsOfTime,
		ExcludeUntil:  a.ExcludeUntilTime,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":     "ok",
		"as_of_time": a.AsOfTime,
		"columns":    result.Columns,
		"rows":       result.Rows,
		"count":      len(result.Rows),
	}, nil
}

// querySpecJoin is the JSON shape of one join in analyze_query_schema.
type querySpecJoin struct {
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	On       []string `json:"on"`
	JoinType string   `json:"join_type"`
	Prefix   string   `json:"prefix"`
}

type analyzeQueryArgs struct {
	BaseName         string          `json:"base_name"`
	BaseVersion      int             `json:"base_version"`
	SelectedFeatures []string        `json:"selected_features"`
	Joins            []querySpecJoin `json:"joins"`
	Filters          []string        `json:"filters"`
	AsOfTime         string          `json:"as_of_time"`
	ProjectName      string          `json:"project_name"`
}

func (r *Registry) handleAnalyzeQuerySchema(ctx context.Context, args json.RawMessage) (any, error) {
	var a analyzeQueryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	plan, err := r.buildQueryPlan(ctx, session, fs, a)
	if err != nil {
		return nil, err
	}

	groups := []map[string]any{{"name": plan.Base.Name, "version": plan.Base.Version}}
	for _, j := range plan.Joins {
		groups = append(groups, map[string]any{"name": j.FeatureGroup.Name, "version": j.FeatureGroup.Version})
	}
	sql, err := plan.SQL(fs.OfflineFeatureStoreName, fs.OnlineFeatureStoreName, false)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":         "ok",
		"features":       plan.Schema(),
		"feature_groups": groups,
		"joins":          plan.Joins,
		"filters":        plan.Filters,
		"sql":            sql,
	}, nil
}

// buildQueryPlan assembles a typed query plan from the declarative
// arguments, compiling filter expressions against the plan schema.
func (r *Registry) buildQueryPlan(ctx context.Context, session *hopsworks.Session, fs *hopsworks.FeatureStore, a analyzeQueryArgs) (*hopsworks.QueryPlan, error) {
	base, err := r.lookupQueryGroup(ctx, session, fs, a.BaseName, a.BaseVersion)
	if err != nil {
		return nil, err
	}
	plan := hopsworks.NewQueryPlan(base)
	if len(a.SelectedFeatures) > 0 {
		if err := plan.Select(a.SelectedFeatures); err != nil {
			return nil, err
		}
	}
	for _, j := range a.Joins {
		fg, err := r.lookupQueryGroup(ctx, session, fs, j.Name, j.Version)
		if err != nil {
			return nil, err
		}
		joinType := j.JoinType
		if joinType == "outer" {
			joinType = "full"
		}
		if err := plan.Join(fg, j.On, joinType, j.Prefix); err != nil {
			return nil, err
		}
	}
	for _, expr := range a.Filters {
		filter, err := exprfilter.Compile(expr, exprfilter.ColumnResolverFunc(plan.HasColumn))
		if err != nil {
			return nil, err
		}
		if err := plan.Filter(filter.Column, string(filter.Operator), filter.Literal.Value); err != nil {
			return nil, err
		}
	}
	if a.AsOfTime != "" {
		plan.AsOf(a.AsOfTime)
	}
	return plan, nil
}

// executePlan renders a plan to SQL and runs it against the offline
// store with the configured row limit.
func (r *Registry) executePlan(ctx context.Context, session *hopsworks.Session, fs *hopsworks.FeatureStore, plan *hopsworks.QueryPlan, limit int) (*hopsworks.QueryResult, error) {
	sql, err := plan.SQL(fs.OfflineFeatureStoreName, fs.OnlineFeatureStoreName, false)
	if err != nil {
		return nil, err
	}
	return session.Client().SQL(ctx, fs.ProjectID, fs.ID, sql, false, nil, r.rowLimit(limit))
}
