// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Feature is a single column of a feature group or query result.
type Feature struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Primary     bool   `json:"primary"`
	Partition   bool   `json:"partition"`
	OnlineType  string `json:"onlineType,omitempty"`
	DefaultValue any   `json:"defaultValue,omitempty"`
}

// FeatureGroup is a named, versioned table-like entity in the feature store.
type FeatureGroup struct {
	ID               int          `json:"id"`
	Name             string       `json:"name"`
	Version          int          `json:"version"`
	Description      string       `json:"description"`
	Created          string       `json:"created"`
	Creator          string       `json:"creator"`
	PrimaryKey       []string     `json:"primaryKey"`
	PartitionKey     []string     `json:"partitionKey"`
	EventTime        string       `json:"eventTime"`
	OnlineEnabled    bool         `json:"onlineEnabled"`
	TimeTravelFormat string       `json:"timeTravelFormat"`
	Features         []Feature    `json:"features"`
	Type             string       `json:"type,omitempty"` // cachedFeaturegroupDTO, onDemandFeaturegroupDTO, spineFeaturegroupDTO
	StorageConnector *Connector   `json:"storageConnector,omitempty"`
	Query            string       `json:"query,omitempty"` // external feature groups only
	EmbeddingIndex   *EmbeddingIndex `json:"embeddingIndex,omitempty"`
}

// Connector identifies the storage connector backing an external
// feature group.
type Connector struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"storageConnectorType"`
}

// HasColumn reports whether the feature group declares the named column.
// It satisfies the exprfilter column-resolution capability.
func (fg *FeatureGroup) HasColumn(name string) bool {
	for _, f := range fg.Features {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FeatureNames returns the declared column names in order.
func (fg *FeatureGroup) FeatureNames() []string {
	names := make([]string, len(fg.Features))
	for i, f := range fg.Features {
		names[i] = f.Name
	}
	return names
}

// CreateFeatureGroupRequest carries the metadata for a new feature group.
type CreateFeatureGroupRequest struct {
	Name             string    `json:"name"`
	Version          int       `json:"version,omitempty"`
	Description      string    `json:"description,omitempty"`
	PrimaryKey       []string  `json:"primaryKey,omitempty"`
	PartitionKey     []string  `json:"partitionKey,omitempty"`
	EventTime        string    `json:"eventTime,omitempty"`
	OnlineEnabled    bool      `json:"onlineEnabled"`
	TimeTravelFormat string    `json:"timeTravelFormat,omitempty"`
	Features         []Feature `json:"features,omitempty"`
	EmbeddingIndex   *EmbeddingIndex `json:"embeddingIndex,omitempty"`
}

func fgRoot(projectID, fsID int) string {
	return fmt.Sprintf("project/%d/featurestores/%d/featuregroups", projectID, fsID)
}

// CreateFeatureGroup creates a feature group metadata object. Data is
// inserted separately.
func (c *Client) CreateFeatureGroup(ctx context.Context, projectID, fsID int, req CreateFeatureGroupRequest) (*FeatureGroup, error) {
	var out FeatureGroup
	if err := c.post(ctx, "create feature group", fgRoot(projectID, fsID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFeatureGroup fetches a feature group by name and version.
func (c *Client) GetFeatureGroup(ctx context.Context, projectID, fsID int, name string, version int) (*FeatureGroup, error) {
	var out []FeatureGroup
	path := fgRoot(projectID, fsID) + "/" + name
	if err := c.get(ctx, "get feature group", path, versionQuery(version), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, NewError(KindNotFound, "get feature group", "feature group %s (version %d) not found", name, version)
	}
	return &out[0], nil
}

// ListFeatureGroups returns all feature groups in the store.
func (c *Client) ListFeatureGroups(ctx context.Context, projectID, fsID int) ([]FeatureGroup, error) {
	var out []FeatureGroup
	if err := c.get(ctx, "list feature groups", fgRoot(projectID, fsID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFeatureGroupByID fetches a feature group by its numeric ID.
func (c *Client) GetFeatureGroupByID(ctx context.Context, projectID, fsID, id int) (*FeatureGroup, error) {
	groups, err := c.ListFeatureGroups(ctx, projectID, fsID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i], nil
		}
	}
	return nil, NewError(KindNotFound, "get feature group", "feature group with ID %d not found", id)
}

// PreviewOptions controls a feature group data read.
type PreviewOptions struct {
	Limit      int
	Online     bool
	WallclockTime string // time travel point, "YYYY-MM-DD HH:MM:SS"
	ExcludeUntil  string
}

// ReadFeatureGroup reads rows from a feature group, optionally from the
// online store or as of a past commit.
func (c *Client) ReadFeatureGroup(ctx context.Context, projectID, fsID, fgID int, opts PreviewOptions) (*QueryResult, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Online {
		q.Set("storage", "online")
	}
	if opts.WallclockTime != "" {
		q.Set("wallclockTime", opts.WallclockTime)
	}
	if opts.ExcludeUntil != "" {
		q.Set("excludeUntil", opts.ExcludeUntil)
	}
	var out QueryResult
	path := fmt.Sprintf("%s/%d/preview", fgRoot(projectID, fsID), fgID)
	if err := c.get(ctx, "read feature group", path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFeatureGroupDescription replaces a feature group's description.
func (c *Client) UpdateFeatureGroupDescription(ctx context.Context, projectID, fsID, fgID int, description string) (*FeatureGroup, error) {
	var out FeatureGroup
	path := fmt.Sprintf("%s/%d", fgRoot(projectID, fsID), fgID)
	q := url.Values{"updateMetadata": {"true"}}
	body := map[string]any{"description": description}
	if err := c.put(ctx, "update feature group description", path, q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFeatureDescription replaces the description of one feature inside
// a feature group.
func (c *Client) UpdateFeatureDescription(ctx context.Context, projectID, fsID, fgID int, featureName, description string) (*FeatureGroup, error) {
	var out FeatureGroup
	path := fmt.Sprintf("%s/%d", fgRoot(projectID, fsID), fgID)
	q := url.Values{"updateMetadata": {"true"}}
	body := map[string]any{
		"features": []map[string]any{{"name": featureName, "description": description}},
	}
	if err := c.put(ctx, "update feature description", path, q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AppendFeature adds a new feature (column) to an existing feature group.
func (c *Client) AppendFeature(ctx context.Context, projectID, fsID, fgID int, feature Feature) (*FeatureGroup, error) {
	var out FeatureGroup
	path := fmt.Sprintf("%s/%d", fgRoot(projectID, fsID), fgID)
	q := url.Values{"updateMetadata": {"true"}}
	body := map[string]any{"features": []Feature{feature}}
	if err := c.put(ctx, "create feature", path, q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFeatureGroup removes a feature group and its data.
func (c *Client) DeleteFeatureGroup(ctx context.Context, projectID, fsID, fgID int) error {
	path := fmt.Sprintf("%s/%d", fgRoot(projectID, fsID), fgID)
	return c.delete(ctx, "delete feature group", path, nil)
}

// InsertRows writes rows into a feature group's online store.
func (c *Client) InsertRows(ctx context.Context, projectID, fsID, fgID int, rows []map[string]any) error {
	path := fmt.Sprintf("%s/%d/ingestion", fgRoot(projectID, fsID), fgID)
	body := map[string]any{"rows": rows, "storage": "online"}
	return c.post(ctx, "insert rows", path, nil, body, nil)
}

// FeatureStatistics holds descriptive statistics for one feature.
type FeatureStatistics struct {
	Count         int64   `json:"count"`
	DistinctCount int64   `json:"distinctCount"`
	UniqueCount   int64   `json:"uniqueCount"`
	Mean          float64 `json:"mean"`
	Max           float64 `json:"max"`
	Min           float64 `json:"min"`
	StdDev        float64 `json:"stddev"`
	Completeness  float64 `json:"completeness"`
}

// Statistics is one statistics computation over a feature group or
// training dataset.
type Statistics struct {
	ComputationTime string                       `json:"computationTime"`
	Features        map[string]FeatureStatistics `json:"featureDescriptiveStatistics"`
}

// GetFeatureGroupStatistics returns the latest (or time-scoped) statistics.
func (c *Client) GetFeatureGroupStatistics(ctx context.Context, projectID, fsID, fgID int, computationTime string, featureNames []string) (*Statistics, error) {
	q := url.Values{}
	if computationTime != "" {
		q.Set("computationTime", computationTime)
	}
	for _, f := range featureNames {
		q.Add("featureNames", f)
	}
	var out Statistics
	path := fmt.Sprintf("%s/%d/statistics", fgRoot(projectID, fsID), fgID)
	if err := c.get(ctx, "get feature group statistics", path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ComputeFeatureGroupStatistics triggers a statistics computation.
func (c *Client) ComputeFeatureGroupStatistics(ctx context.Context, projectID, fsID, fgID int, wallclockTime string) (*Statistics, error) {
	q := url.Values{}
	if wallclockTime != "" {
		q.Set("wallclockTime", wallclockTime)
	}
	var out Statistics
	path := fmt.Sprintf("%s/%d/statistics", fgRoot(projectID, fsID), fgID)
	if err := c.post(ctx, "compute feature group statistics", path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
