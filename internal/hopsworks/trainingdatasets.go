// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// TrainingDatasetSplit names one split of a training dataset and its
// fraction of the data.
type TrainingDatasetSplit struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// TrainingDataset is a materialized snapshot of feature data used for
// model training.
type TrainingDataset struct {
	ID          int                      `json:"id,omitempty"`
	Name        string                   `json:"name"`
	Version     int                      `json:"version"`
	Description string                   `json:"description,omitempty"`
	DataFormat  string                   `json:"dataFormat,omitempty"`
	Coalesce    bool                     `json:"coalesce,omitempty"`
	Seed        int64                    `json:"seed,omitempty"`
	Location    string                   `json:"location,omitempty"`
	Created     string                   `json:"created,omitempty"`
	Splits      []TrainingDatasetSplit   `json:"splits,omitempty"`
	Features    []TrainingDatasetFeature `json:"features,omitempty"`
	StartTime   string                   `json:"eventStartTime,omitempty"`
	EndTime     string                   `json:"eventEndTime,omitempty"`
	Query       *QueryPlan               `json:"query,omitempty"`
}

// HasSplit reports whether the dataset defines the named split.
func (td *TrainingDataset) HasSplit(name string) bool {
	for _, s := range td.Splits {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

var trainingDataFormats = map[string]bool{
	"tfrecords": true, "csv": true, "tsv": true,
	"parquet": true, "avro": true, "orc": true,
}

// ValidateDataFormat checks a training data file format. Empty selects
// parquet.
func ValidateDataFormat(format string) (string, error) {
	if format == "" {
		return "parquet", nil
	}
	if !trainingDataFormats[format] {
		return "", NewError(KindInvalidArgument, "training dataset",
			"unsupported data format %q (expected tfrecords, csv, tsv, parquet, avro or orc)", format)
	}
	return format, nil
}

func tdRoot(projectID, fsID int) string {
	return fmt.Sprintf("project/%d/featurestores/%d/trainingdatasets", projectID, fsID)
}

// CreateTrainingDatasetRequest describes a standalone training dataset
// built directly from a query plan.
type CreateTrainingDatasetRequest struct {
	Name        string
	Version     int
	Description string
	DataFormat  string
	Coalesce    bool
	Seed        int64
	Splits      []TrainingDatasetSplit
	Query       *QueryPlan
}

// CreateTrainingDataset creates a standalone training dataset. Feature
// views are the preferred path for new work; this covers the legacy
// datasets that still exist in most stores.
func (c *Client) CreateTrainingDataset(ctx context.Context, projectID, fsID int, req CreateTrainingDatasetRequest) (*TrainingDataset, error) {
	const op = "create training dataset"
	if req.Name == "" {
		return nil, NewError(KindInvalidArgument, op, "name is required")
	}
	if req.Query == nil || req.Query.Base == nil {
		return nil, NewError(KindInvalidArgument, op, "a query with a base feature group is required")
	}
	format, err := ValidateDataFormat(req.DataFormat)
	if err != nil {
		return nil, err
	}
	if err := validateSplits(req.Splits); err != nil {
		return nil, err
	}

	body := TrainingDataset{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		DataFormat:  format,
		Coalesce:    req.Coalesce,
		Seed:        req.Seed,
		Splits:      req.Splits,
		Features:    planFeatures(req.Query),
		Query:       req.Query,
	}
	var created TrainingDataset
	if err := c.post(ctx, op, tdRoot(projectID, fsID), nil, body, &created); err != nil {
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

func planFeatures(q *QueryPlan) []TrainingDatasetFeature {
	schema := q.Schema()
	features := make([]TrainingDatasetFeature, len(schema))
	for i, f := range schema {
		features[i] = TrainingDatasetFeature{Name: f.Name, Type: f.Type, Index: i}
	}
	return features
}

func validateSplits(splits []TrainingDatasetSplit) error {
	if len(splits) == 0 {
		return nil
	}
	total := 0.0
	for _, s := range splits {
		if s.Name == "" {
			return NewError(KindInvalidArgument, "training dataset", "split name must not be empty")
		}
		if s.Percentage <= 0 || s.Percentage >= 1 {
			return NewError(KindInvalidArgument, "training dataset", "split %q percentage must be in (0, 1), got %v", s.Name, s.Percentage)
		}
		total += s.Percentage
	}
	if total > 1.0000001 {
		return NewError(KindInvalidArgument, "training dataset", "split percentages sum to %v, must not exceed 1", total)
	}
	return nil
}

// GetTrainingDataset returns a standalone training dataset version.
func (c *Client) GetTrainingDataset(ctx context.Context, projectID, fsID int, name string, version int) (*TrainingDataset, error) {
	const op = "get training dataset"
	var datasets []TrainingDataset
	path := tdRoot(projectID, fsID) + "/" + url.PathEscape(name)
	if err := c.get(ctx, op, path, versionQuery(version), &datasets); err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		return nil, NewError(KindNotFound, op, "training dataset %q v%d not found", name, version)
	}
	return &datasets[0], nil
}

// DeleteTrainingDataset deletes a standalone training dataset.
func (c *Client) DeleteTrainingDataset(ctx context.Context, projectID, fsID, tdID int) error {
	return c.delete(ctx, "delete training dataset", fmt.Sprintf("%s/%d", tdRoot(projectID, fsID), tdID), nil)
}

// ReadTrainingDataset reads rows through the dataset's stored query.
func (c *Client) ReadTrainingDataset(ctx context.Context, fs *FeatureStore, td *TrainingDataset, split string, limit int) (*QueryResult, error) {
	const op = "read training dataset"
	if split != "" && !td.HasSplit(split) {
		return nil, NewError(KindInvalidArgument, op, "training dataset %q has no split %q", td.Name, split)
	}
	if td.Query == nil || td.Query.Base == nil {
		return nil, NewError(KindInvalidArgument, op, "training dataset %q carries no query metadata", td.Name)
	}
	query, err := td.Query.SQL(fs.OfflineFeatureStoreName, fs.OnlineFeatureStoreName, false)
	if err != nil {
		return nil, err
	}
	return c.SQL(ctx, fs.ProjectID, fs.ID, query, false, nil, limit)
}

// ComputeTrainingDatasetStatistics recomputes descriptive statistics for
// a standalone training dataset.
func (c *Client) ComputeTrainingDatasetStatistics(ctx context.Context, projectID, fsID, tdID int) (*Statistics, error) {
	var stats Statistics
	path := fmt.Sprintf("%s/%d/statistics", tdRoot(projectID, fsID), tdID)
	if err := c.post(ctx, "compute training dataset statistics", path, nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// TrainingDatasetServingVector looks up an online serving vector through
// the dataset's prepared statements.
func (c *Client) TrainingDatasetServingVector(ctx context.Context, fs *FeatureStore, tdID int, entry map[string]any) (map[string]any, error) {
	const op = "get serving vector"
	var resp itemsEnvelope[PreparedStatement]
	path := fmt.Sprintf("%s/%d/preparedstatement", tdRoot(fs.ProjectID, fs.ID), tdID)
	if err := c.get(ctx, op, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, op, "training dataset %d has no online serving statements", tdID)
	}

	vector := make(map[string]any)
	for _, stmt := range resp.Items {
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
	return vector, nil
}

// TrainingDataRequest describes training data to materialize from a
// feature view.
type TrainingDataRequest struct {
	Description  string
	DataFormat   string
	StartTime    string
	EndTime      string
	Coalesce     bool
	Seed         int64
	Splits       []TrainingDatasetSplit
	WriteOptions map[string]any
}

// CreateTrainingData materializes a training dataset from a feature view
// and starts the backing job.
func (c *Client) CreateTrainingData(ctx context.Context, projectID, fsID int, fvName string, fvVersion int, req TrainingDataRequest) (*TrainingDataset, *Execution, error) {
	const op = "create training data"
	format, err := ValidateDataFormat(req.DataFormat)
	if err != nil {
		return nil, nil, err
	}
	if err := validateSplits(req.Splits); err != nil {
		return nil, nil, err
	}

	body := TrainingDataset{
		Name:        fvName,
		Description: req.Description,
		DataFormat:  format,
		Coalesce:    req.Coalesce,
		Seed:        req.Seed,
		Splits:      req.Splits,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
	var created TrainingDataset
	root := fvPath(projectID, fsID, fvName, fvVersion) + "/trainingdatasets"
	if err := c.post(ctx, op, root, nil, body, &created); err != nil {
		return nil, nil, err
	}
	if created.Version == 0 {
		created.Version = 1
	}

	var exec Execution
	computePath := fmt.Sprintf("%s/version/%d/compute", root, created.Version)
	computeBody := map[string]any{"writeOptions": req.WriteOptions}
	if err := c.post(ctx, op, computePath, nil, computeBody, &exec); err != nil {
		return nil, nil, err
	}
	return &created, &exec, nil
}

// GetTrainingData returns the metadata of a feature view training
// dataset version.
func (c *Client) GetTrainingData(ctx context.Context, projectID, fsID int, fvName string, fvVersion, tdVersion int) (*TrainingDataset, error) {
	var td TrainingDataset
	path := fmt.Sprintf("%s/trainingdatasets/version/%d", fvPath(projectID, fsID, fvName, fvVersion), tdVersion)
	if err := c.get(ctx, "get training data", path, nil, &td); err != nil {
		return nil, err
	}
	return &td, nil
}

// DeleteTrainingData deletes a feature view training dataset version.
func (c *Client) DeleteTrainingData(ctx context.Context, projectID, fsID int, fvName string, fvVersion, tdVersion int) error {
	path := fmt.Sprintf("%s/trainingdatasets/version/%d", fvPath(projectID, fsID, fvName, fvVersion), tdVersion)
	return c.delete(ctx, "delete training data", path, nil)
}
