// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TrainingDatasetFeature is one column of a feature view schema, with
// its role flags for training and serving.
type TrainingDatasetFeature struct {
	Name                  string `json:"name"`
	Type                  string `json:"type,omitempty"`
	Index                 int    `json:"index"`
	Label                 bool   `json:"label,omitempty"`
	InferenceHelperColumn bool   `json:"inferenceHelperColumn,omitempty"`
	TrainingHelperColumn  bool   `json:"trainingHelperColumn,omitempty"`
}

// FeatureView is a logical view over feature groups used for training
// and online inference.
type FeatureView struct {
	ID               int                      `json:"id,omitempty"`
	Name             string                   `json:"name"`
	Version          int                      `json:"version"`
	Description      string                   `json:"description,omitempty"`
	Created          string                   `json:"created,omitempty"`
	Creator          string                   `json:"creator,omitempty"`
	FeatureStoreName string                   `json:"featurestoreName,omitempty"`
	Features         []TrainingDatasetFeature `json:"features,omitempty"`
	Query            *QueryPlan               `json:"query,omitempty"`
	LoggingEnabled   bool                     `json:"loggingEnabled,omitempty"`
}

// Labels returns the names of the label columns.
func (fv *FeatureView) Labels() []string {
	var labels []string
	for _, f := range fv.Features {
		if f.Label {
			labels = append(labels, f.Name)
		}
	}
	return labels
}

// PrimaryKeys returns the serving key columns, taken from the base
// feature group of the view's query.
func (fv *FeatureView) PrimaryKeys() []string {
	if fv.Query == nil || fv.Query.Base == nil {
		return nil
	}
	return fv.Query.Base.PrimaryKey
}

// CreateFeatureViewRequest describes a feature view to create. Labels
// and helper column names must resolve against the query schema.
type CreateFeatureViewRequest struct {
	Name                   string
	Version                int
	Description            string
	Query                  *QueryPlan
	Labels                 []string
	InferenceHelperColumns []string
	TrainingHelperColumns  []string
	LoggingEnabled         bool
}

func fvRoot(projectID, fsID int) string {
	return fmt.Sprintf("project/%d/featurestores/%d/featureview", projectID, fsID)
}

func fvPath(projectID, fsID int, name string, version int) string {
	return fmt.Sprintf("%s/%s/version/%d", fvRoot(projectID, fsID), url.PathEscape(name), version)
}

// CreateFeatureView creates a feature view from a query plan.
func (c *Client) CreateFeatureView(ctx context.Context, projectID, fsID int, req CreateFeatureViewRequest) (*FeatureView, error) {
	const op = "create feature view"
	if req.Name == "" {
		return nil, NewError(KindInvalidArgument, op, "name is required")
	}
	if req.Query == nil || req.Query.Base == nil {
		return nil, NewError(KindInvalidArgument, op, "a query with a base feature group is required")
	}

	features, err := buildViewFeatures(req)
	if err != nil {
		return nil, err
	}

	body := FeatureView{
		Name:           req.Name,
		Version:        req.Version,
		Description:    req.Description,
		Features:       features,
		Query:          req.Query,
		LoggingEnabled: req.LoggingEnabled,
	}
	var created FeatureView
	if err := c.post(ctx, op, fvRoot(projectID, fsID), nil, body, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created = body
	}
	if created.Query == nil {
		created.Query = req.Query
	}
	return &created, nil
}

// buildViewFeatures derives the view schema from the query plan and
// marks label and helper columns.
func buildViewFeatures(req CreateFeatureViewRequest) ([]TrainingDatasetFeature, error) {
	schema := req.Query.Schema()
	byName := make(map[string]int, len(schema))
	features := make([]TrainingDatasetFeature, len(schema))
	for i, f := range schema {
		features[i] = TrainingDatasetFeature{Name: f.Name, Type: f.Type, Index: i}
		byName[strings.ToLower(f.Name)] = i
	}

	mark := func(names []string, role string, set func(*TrainingDatasetFeature)) error {
		for _, name := range names {
			i, ok := byName[strings.ToLower(name)]
			if !ok {
				return NewError(KindInvalidArgument, "create feature view", "%s column %q not found in the query schema", role, name)
			}
			set(&features[i])
		}
		return nil
	}

	if err := mark(req.Labels, "label", func(f *TrainingDatasetFeature) { f.Label = true }); err != nil {
		return nil, err
	}
	if err := mark(req.InferenceHelperColumns, "inference helper", func(f *TrainingDatasetFeature) { f.InferenceHelperColumn = true }); err != nil {
		return nil, err
	}
	if err := mark(req.TrainingHelperColumns, "training helper", func(f *TrainingDatasetFeature) { f.TrainingHelperColumn = true }); err != nil {
		return nil, err
	}
	return features, nil
}

// GetFeatureView returns one feature view version.
func (c *Client) GetFeatureView(ctx context.Context, projectID, fsID int, name string, version int) (*FeatureView, error) {
	var fv FeatureView
	if err := c.get(ctx, "get feature view", fvPath(projectID, fsID, name, version), nil, &fv); err != nil {
		return nil, err
	}
	return &fv, nil
}

// ListFeatureViews returns all feature views of the store.
func (c *Client) ListFeatureViews(ctx context.Context, projectID, fsID int) ([]FeatureView, error) {
	var resp itemsEnvelope[FeatureView]
	if err := c.get(ctx, "list feature views", fvRoot(projectID, fsID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// UpdateFeatureViewDescription updates the description of a view.
func (c *Client) UpdateFeatureViewDescription(ctx context.Context, projectID, fsID int, name string, version int, description string) (*FeatureView, error) {
	body := FeatureView{Name: name, Version: version, Description: description}
	var updated FeatureView
	if err := c.put(ctx, "update feature view description", fvPath(projectID, fsID, name, version), nil, body, &updated); err != nil {
		return nil, err
	}
	if updated.Name == "" {
		updated = body
	}
	return &updated, nil
}

// DeleteFeatureView deletes a feature view version.
func (c *Client) DeleteFeatureView(ctx context.Context, projectID, fsID int, name string, version int) error {
	return c.delete(ctx, "delete feature view", fvPath(projectID, fsID, name, version), nil)
}

// BatchDataOptions narrow a batch data read.
type BatchDataOptions struct {
	StartTime   string
	EndTime     string
	Limit       int
	ReadOptions map[string]any
}

// GetBatchData reads offline data through the view's query, optionally
// bounded by an event time window.
func (c *Client) GetBatchData(ctx context.Context, fs *FeatureStore, fv *FeatureView, opts BatchDataOptions) (*QueryResult, error) {
	const op = "get batch data"
	if fv.Query == nil || fv.Query.Base == nil {
		return nil, NewError(KindInvalidArgument, op, "feature view %q has no query metadata", fv.Name)
	}

	plan := *fv.Query
	if opts.StartTime != "" || opts.EndTime != "" {
		eventTime := plan.Base.EventTime
		if eventTime == "" {
			return nil, NewError(KindInvalidArgument, op, "feature group %q has no event time column for time window reads", plan.Base.Name)
		}
		if opts.StartTime != "" {
			plan.Filters = append(plan.Filters, QueryFilter{Column: eventTime, Operator: ">=", Value: opts.StartTime})
		}
		if opts.EndTime != "" {
			plan.Filters = append(plan.Filters, QueryFilter{Column: eventTime, Operator: "<=", Value: opts.EndTime})
		}
	}

	query, err := plan.SQL(fs.OfflineFeatureStoreName, fs.OnlineFeatureStoreName, false)
	if err != nil {
		return nil, err
	}
	return c.SQL(ctx, fs.ProjectID, fs.ID, query, false, opts.ReadOptions, opts.Limit)
}

// PreparedStatementParameter is one serving key of a prepared statement.
type PreparedStatementParameter struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// PreparedStatement is a single-table online lookup of a feature view.
type PreparedStatement struct {
	Index       int                          `json:"preparedStatementIndex"`
	QueryOnline string                       `json:"queryOnline"`
	Parameters  []PreparedStatementParameter `json:"preparedStatementParameters"`
}

// GetServingPreparedStatements returns the online lookup statements of
// the view, one per joined feature group.
func (c *Client) GetServingPreparedStatements(ctx context.Context, projectID, fsID int, name string, version int) ([]PreparedStatement, error) {
	const op = "get prepared statements"
	var resp itemsEnvelope[PreparedStatement]
	path := fvPath(projectID, fsID, name, version) + "/preparedstatement"
	if err := c.get(ctx, op, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, op, "feature view %q v%d has no online serving statements; is the view online enabled?", name, version)
	}
	return resp.Items, nil
}

// FeatureVectors looks up online feature vectors for the given serving
// key entries. Each entry must carry every serving key of the view.
func (c *Client) FeatureVectors(ctx context.Context, fs *FeatureStore, fv *FeatureView, statements []PreparedStatement, entries []map[string]any) ([]map[string]any, error) {
	const op = "get feature vectors"
	if len(entries) == 0 {
		return nil, NewError(KindInvalidArgument, op, "at least one serving key entry is required")
	}

	vectors := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		vector := make(map[string]any)
		for _, stmt := range statements {
			query, err := bindPreparedStatement(stmt, entry)
			if err != nil {
				return nil, err
			}
			result, err := c.SQL(ctx, fs.ProjectID, fs.ID, query, true, nil, 1)
			if err != nil {
				return nil, err
			}
			if len(result.Rows) == 0 {
				continue
			}
			for k, v := range result.Rows[0] {
				vector[k] = v
			}
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// bindPreparedStatement substitutes serving key values into the ordered
// placeholders of an online lookup query.
func bindPreparedStatement(stmt PreparedStatement, entry map[string]any) (string, error) {
	query := stmt.QueryOnline
	for _, param := range stmt.Parameters {
		value, ok := entry[param.Name]
		if !ok {
			return "", NewError(KindInvalidArgument, "get feature vectors", "serving key %q missing from the entry", param.Name)
		}
		query = strings.Replace(query, "?", sqlLiteral(value), 1)
	}
	if strings.Contains(query, "?") {
		return "", NewError(KindInvalidArgument, "get feature vectors", "statement %d has unbound parameters", stmt.Index)
	}
	return query, nil
}

// LogEntry is one feature log record: untransformed and transformed
// features plus model predictions.
type LogEntry struct {
	Features               map[string]any `json:"features,omitempty"`
	TransformedFeatures    map[string]any `json:"transformedFeatures,omitempty"`
	Predictions            map[string]any `json:"predictions,omitempty"`
	TrainingDatasetVersion int            `json:"trainingDatasetVersion,omitempty"`
	ModelName              string         `json:"modelName,omitempty"`
	ModelVersion           int            `json:"modelVersion,omitempty"`
}

func fvLogPath(projectID, fsID int, name string, version int) string {
	return fvPath(projectID, fsID, name, version) + "/log"
}

// EnableLogging creates the backing log feature groups for the view.
func (c *Client) EnableLogging(ctx context.Context, projectID, fsID int, name string, version int) error {
	return c.post(ctx, "enable logging", fvLogPath(projectID, fsID, name, version), nil, nil, nil)
}

// PauseLogging suspends the scheduled log materialization job.
func (c *Client) PauseLogging(ctx context.Context, projectID, fsID int, name string, version int) error {
	return c.put(ctx, "pause logging", fvLogPath(projectID, fsID, name, version)+"/pause", nil, nil, nil)
}

// ResumeLogging resumes the scheduled log materialization job.
func (c *Client) ResumeLogging(ctx context.Context, projectID, fsID int, name string, version int) error {
	return c.put(ctx, "resume logging", fvLogPath(projectID, fsID, name, version)+"/resume", nil, nil, nil)
}

// transformedQuery encodes the optional transformed selector. nil means
// both transformed and untransformed logs.
func transformedQuery(transformed *bool) url.Values {
	if transformed == nil {
		return nil
	}
	q := url.Values{}
	q.Set("transformed", strconv.FormatBool(*transformed))
	return q
}

// DeleteLog drops the log feature groups and their data.
func (c *Client) DeleteLog(ctx context.Context, projectID, fsID int, name string, version int, transformed *bool) error {
	return c.delete(ctx, "delete log", fvLogPath(projectID, fsID, name, version), transformedQuery(transformed))
}

// LogFeatures appends one record to the view's feature log.
func (c *Client) LogFeatures(ctx context.Context, projectID, fsID int, name string, version int, entry LogEntry) error {
	const op = "log features"
	if entry.Features == nil && entry.TransformedFeatures == nil && entry.Predictions == nil {
		return NewError(KindInvalidArgument, op, "nothing to log: provide features, transformed features or predictions")
	}
	return c.post(ctx, op, fvLogPath(projectID, fsID, name, version)+"/entries", nil, entry, nil)
}

// MaterializeLog flushes buffered log entries to the offline store.
func (c *Client) MaterializeLog(ctx context.Context, projectID, fsID int, name string, version int, transformed *bool) (*Execution, error) {
	var exec Execution
	path := fvLogPath(projectID, fsID, name, version) + "/materialize"
	if err := c.post(ctx, "materialize log", path, transformedQuery(transformed), nil, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// LogTimelineEntry records one log materialization.
type LogTimelineEntry struct {
	CommitTime    string `json:"commitTime"`
	RowsInserted  int    `json:"rowsInserted"`
	RowsUpdated   int    `json:"rowsUpdated"`
	RowsDeleted   int    `json:"rowsDeleted"`
	Transformed   bool   `json:"transformed"`
	CommitFileCnt int    `json:"commitFileCount,omitempty"`
}

// GetLogTimeline returns the most recent log materializations.
func (c *Client) GetLogTimeline(ctx context.Context, projectID, fsID int, name string, version, limit int) ([]LogTimelineEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp itemsEnvelope[LogTimelineEntry]
	path := fvLogPath(projectID, fsID, name, version) + "/timeline"
	if err := c.get(ctx, "get log timeline", path, q, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ReadLogOptions filter a feature log read.
type ReadLogOptions struct {
	StartTime              string
	EndTime                string
	TrainingDatasetVersion int
	ModelName              string
	ModelVersion           int
	Transformed            *bool
	Limit                  int
}

// ReadLog returns logged feature records matching the options.
func (c *Client) ReadLog(ctx context.Context, projectID, fsID int, name string, version int, opts ReadLogOptions) ([]map[string]any, error) {
	q := url.Values{}
	if opts.StartTime != "" {
		q.Set("start_time", opts.StartTime)
	}
	if opts.EndTime != "" {
		q.Set("end_time", opts.EndTime)
	}
	if opts.TrainingDatasetVersion > 0 {
		q.Set("training_dataset_version", strconv.Itoa(opts.TrainingDatasetVersion))
	}
	if opts.ModelName != "" {
		q.Set("model_name", opts.ModelName)
		if opts.ModelVersion > 0 {
			q.Set("model_version", strconv.Itoa(opts.ModelVersion))
		}
	}
	if opts.Transformed != nil {
		q.Set("transformed", strconv.FormatBool(*opts.Transformed))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	var resp itemsEnvelope[map[string]any]
	if err := c.get(ctx, "read log", fvLogPath(projectID, fsID, name, version), q, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
