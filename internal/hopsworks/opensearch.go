// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const openSearchPort = 9200

type elasticJWTResponse struct {
	Token string `json:"token"`
}

// OpenSearchToken fetches a project-scoped JWT for the cluster's
// OpenSearch endpoint.
func (c *Client) OpenSearchToken(ctx context.Context, projectID int) (string, error) {
	var resp elasticJWTResponse
	if err := c.get(ctx, "get opensearch token", fmt.Sprintf("elastic/jwt/%d", projectID), nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", NewError(KindBackend, "get opensearch token", "cluster returned an empty OpenSearch token")
	}
	return resp.Token, nil
}

// OpenSearchConfig is a ready-to-use client configuration for the
// cluster's OpenSearch endpoint, the counterpart of the SDK's
// get_default_py_config helper.
type OpenSearchConfig struct {
	Hosts       []string          `json:"hosts"`
	Headers     map[string]string `json:"headers"`
	UseSSL      bool              `json:"useSsl"`
	VerifyCerts bool              `json:"verifyCerts"`
}

// OpenSearchConfigFor builds the OpenSearch connection config for the
// project, including a fresh bearer token.
func (c *Client) OpenSearchConfigFor(ctx context.Context, projectID int, verifyCerts bool) (*OpenSearchConfig, error) {
	token, err := c.OpenSearchToken(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &OpenSearchConfig{
		Hosts:       []string{fmt.Sprintf("https://%s:%d", c.Host(), openSearchPort)},
		Headers:     map[string]string{"Authorization": "Bearer " + token},
		UseSSL:      true,
		VerifyCerts: verifyCerts,
	}, nil
}

// ProjectIndex prefixes an OpenSearch index name with the project name,
// matching the platform's per-project index namespacing.
func ProjectIndex(projectName, index string) string {
	return strings.ToLower(projectName) + "_" + index
}

// Host returns the cluster hostname the client is connected to.
func (c *Client) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return u.Hostname()
}

// FindNeighbors runs a k-nearest-neighbor search against the OpenSearch
// index backing an embedding column. The optional filter narrows the
// candidate set before scoring.
func (c *Client) FindNeighbors(ctx context.Context, projectID int, index, column string, vector []float64, k int, filter *NeighborFilter) ([]Neighbor, error) {
	const op = "knn search"
	if len(vector) == 0 {
		return nil, NewError(KindInvalidArgument, op, "query vector must not be empty")
	}
	if k <= 0 {
		k = 10
	}

	token, err := c.OpenSearchToken(ctx, projectID)
	if err != nil {
		return nil, err
	}

	knn := map[string]any{
		column: map[string]any{
			"vector": vector,
			"k":      k,
		},
	}
	query := map[string]any{"knn": knn}
	if filter != nil {
		clause, err := neighborFilterClause(filter)
		if err != nil {
			return nil, err
		}
		knn[column].(map[string]any)["filter"] = clause
	}

	body := map[string]any{
		"size":  k,
		"query": query,
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	endpoint := fmt.Sprintf("https://%s:%d/%s/_search", c.Host(), openSearchPort, url.PathEscape(index))
	if err := c.doRaw(ctx, op, "POST", endpoint, "Bearer "+token, body, &resp); err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		neighbors = append(neighbors, Neighbor{Score: hit.Score, Values: hit.Source})
	}
	return neighbors, nil
}

func neighborFilterClause(f *NeighborFilter) (map[string]any, error) {
	switch f.Operator {
	case "==":
		return map[string]any{"term": map[string]any{f.Column: f.Value}}, nil
	case ">", "<", ">=", "<=":
		ranges := map[string]string{">": "gt", "<": "lt", ">=": "gte", "<=": "lte"}
		return map[string]any{"range": map[string]any{f.Column: map[string]any{ranges[f.Operator]: f.Value}}}, nil
	case "like":
		s, ok := f.Value.(string)
		if !ok {
			return nil, NewError(KindInvalidArgument, "knn search", "like filter requires a string value")
		}
		return map[string]any{"wildcard": map[string]any{f.Column: "*" + s + "*"}}, nil
	default:
		return nil, NewError(KindInvalidArgument, "knn search", "unsupported filter operator %q", f.Operator)
	}
}
