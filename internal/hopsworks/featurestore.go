// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// FeatureStore is a project's feature store handle.
type FeatureStore struct {
	ID                       int    `json:"featurestoreId"`
	Name                     string `json:"featurestoreName"`
	ProjectID                int    `json:"projectId"`
	ProjectName              string `json:"projectName"`
	OnlineEnabled            bool   `json:"onlineEnabled"`
	OfflineFeatureStoreName  string `json:"offlineFeaturestoreName"`
	OnlineFeatureStoreName   string `json:"onlineFeaturestoreName"`
	NumFeatureGroups         int    `json:"numFeatureGroups"`
	NumTrainingDatasets      int    `json:"numTrainingDatasets"`
	NumStorageConnectors     int    `json:"numStorageConnectors"`
	NumFeatureViews          int    `json:"numFeatureViews"`
}

// GetDefaultFeatureStore returns the project's own feature store.
func (c *Client) GetDefaultFeatureStore(ctx context.Context, projectID int) (*FeatureStore, error) {
	var stores []FeatureStore
	path := fmt.Sprintf("project/%d/featurestores", projectID)
	if err := c.get(ctx, "get feature store", path, nil, &stores); err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, NewError(KindNotFound, "get feature store", "project %d has no feature store", projectID)
	}
	return &stores[0], nil
}

// QueryResult is the tabular result of a SQL query against the store.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// sqlRequest is the payload of the feature store SQL endpoint.
type sqlRequest struct {
	Query       string         `json:"query"`
	Online      bool           `json:"online,omitempty"`
	ReadOptions map[string]any `json:"readOptions,omitempty"`
	Limit       int            `json:"limit,omitempty"`
}

// SQL executes a SQL query against the feature store's metadata and data
// tables and returns the rows, truncated to limit.
func (c *Client) SQL(ctx context.Context, projectID, featureStoreID int, query string, online bool, readOptions map[string]any, limit int) (*QueryResult, error) {
	var out QueryResult
	path := fmt.Sprintf("project/%d/featurestores/%d/sql", projectID, featureStoreID)
	body := sqlRequest{Query: query, Online: online, ReadOptions: readOptions, Limit: limit}
	if err := c.post(ctx, "execute sql", path, nil, body, &out); err != nil {
		return nil, err
	}
	if limit > 0 && len(out.Rows) > limit {
		out.Rows = out.Rows[:limit]
	}
	return &out, nil
}

func versionQuery(version int) url.Values {
	q := url.Values{}
	if version > 0 {
		q.Set("version", strconv.Itoa(version))
	}
	return q
}
