// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"fmt"
)

// SimilarityFunction names a vector similarity metric supported by the
// embedding index.
type SimilarityFunction string

const (
	SimilarityL2         SimilarityFunction = "l2_norm"
	SimilarityCosine     SimilarityFunction = "cosine"
	SimilarityDotProduct SimilarityFunction = "dot_product"
)

// ParseSimilarityFunction validates a similarity function name. An empty
// name selects l2_norm.
func ParseSimilarityFunction(name string) (SimilarityFunction, error) {
	switch SimilarityFunction(name) {
	case "":
		return SimilarityL2, nil
	case SimilarityL2, SimilarityCosine, SimilarityDotProduct:
		return SimilarityFunction(name), nil
	default:
		return "", NewError(KindInvalidArgument, "embedding",
			"unknown similarity function %q (expected l2_norm, cosine or dot_product)", name)
	}
}

// EmbeddingFeature describes one vector column of an embedding index.
type EmbeddingFeature struct {
	Name               string             `json:"name"`
	Dimension          int                `json:"dimension"`
	SimilarityFunction SimilarityFunction `json:"similarityFunctionType"`
}

// EmbeddingIndex is the vector index metadata attached to a feature
// group. An empty IndexName selects the project default index.
type EmbeddingIndex struct {
	IndexName string             `json:"indexName,omitempty"`
	Features  []EmbeddingFeature `json:"features"`
}

// NewEmbeddingIndex creates an index handle. indexName may be empty.
func NewEmbeddingIndex(indexName string) *EmbeddingIndex {
	return &EmbeddingIndex{IndexName: indexName}
}

// AddEmbedding registers a vector column on the index.
func (ei *EmbeddingIndex) AddEmbedding(name string, dimension int, similarity SimilarityFunction) error {
	if name == "" {
		return NewError(KindInvalidArgument, "embedding", "embedding name is required")
	}
	if dimension <= 0 {
		return NewError(KindInvalidArgument, "embedding", "embedding dimension must be positive, got %d", dimension)
	}
	if similarity == "" {
		similarity = SimilarityL2
	}
	for _, f := range ei.Features {
		if f.Name == name {
			return NewError(KindConflict, "embedding", "embedding %q already exists on the index", name)
		}
	}
	ei.Features = append(ei.Features, EmbeddingFeature{
		Name:               name,
		Dimension:          dimension,
		SimilarityFunction: similarity,
	})
	return nil
}

// GetEmbedding returns the named vector column, if registered.
func (ei *EmbeddingIndex) GetEmbedding(name string) (EmbeddingFeature, bool) {
	for _, f := range ei.Features {
		if f.Name == name {
			return f, true
		}
	}
	return EmbeddingFeature{}, false
}

// DefaultColumn returns the first registered vector column. Used when a
// caller does not name the embedding column explicitly.
func (ei *EmbeddingIndex) DefaultColumn() (string, error) {
	if ei == nil || len(ei.Features) == 0 {
		return "", NewError(KindInvalidArgument, "embedding", "feature group has no embedding columns")
	}
	return ei.Features[0].Name, nil
}

// ResolveIndexName returns the OpenSearch index backing this embedding
// index, falling back to the project default vector index.
func (ei *EmbeddingIndex) ResolveIndexName(projectID int) string {
	if ei != nil && ei.IndexName != "" {
		return ei.IndexName
	}
	return fmt.Sprintf("%d__embedding_default_project_embedding", projectID)
}

// Neighbor is one result of a vector similarity search.
type Neighbor struct {
	Score  float64        `json:"similarityScore"`
	Values map[string]any `json:"values"`
}

// NeighborFilter restricts a similarity search to rows matching a single
// column predicate. Operator is one of ==, >, <, >=, <=, like.
type NeighborFilter struct {
	Column   string
	Operator string
	Value    any
}
