// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/exprfilter"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerEmbeddingTools() {
	r.read(tool("create_embedding_index",
		"Describe a new embedding index handle for vector similarity search. The index is materialized when a feature group is created with it.",
		schema(map[string]any{
			"index_name": stringProp("Index name, defaults to the project's shared index"),
		})),
		r.handleCreateEmbeddingIndex)

	r.read(tool("add_embedding_to_index",
		"Validate an embedding feature definition against an index handle.",
		schema(map[string]any{
			"name":                stringProp("Embedding feature name"),
			"dimension":           numberProp("Embedding vector dimension"),
			"similarity_function": enumProp("Similarity metric", "l2_norm", "cosine", "dot_product"),
			"index_name":          stringProp("Index name, defaults to the project's shared index"),
		}, "name", "dimension")),
		r.handleAddEmbeddingToIndex)

	r.write(tool("create_feature_group_with_embedding",
		"Create a feature group carrying an embedding index for vector similarity search.",
		schema(map[string]any{
			"name":                stringProp("Feature group name"),
			"version":             numberProp("Feature group version, default 1"),
			"description":         stringProp("Feature group description"),
			"primary_key":         stringArrayProp("Primary key feature names"),
			"embedding_name":      stringProp("Embedding feature name, default embedding"),
			"embedding_dimension": numberProp("Embedding vector dimension, default 768"),
			"similarity_function": enumProp("Similarity metric", "l2_norm", "cosine", "dot_product"),
			"time_travel_format":  stringProp("Time travel format, default HUDI"),
			"online_enabled":      boolProp("Enable the online store, default true"),
			"features":            objectArrayProp("Schema as objects with name, type, description"),
			"project_name":        stringProp("Project whose feature store to use"),
		}, "name")),
		r.handleCreateFeatureGroupWithEmbedding)

	r.write(tool("insert_embedding_vectors",
		"Insert rows carrying embedding vectors into a feature group's online store.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to insert into"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"data":                  stringProp("JSON array of row objects including embedding vectors"),
			"embedding_column":      stringProp("Embedding column, defaults to the first embedding of the index"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "data")),
		r.handleInsertEmbeddingVectors)

	r.read(tool("find_similar_vectors",
		"Find the k nearest neighbors of a query vector in a feature group's embedding index.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group with an embedding index"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"embedding_vector":      numberArrayProp("Query vector"),
			"k":                     numberProp("Number of neighbors, default 10"),
			"embedding_column":      stringProp("Embedding column, defaults to the first embedding of the index"),
			"filter_expression":     stringProp("Column predicate, e.g. \"id > 10\""),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "embedding_vector")),
		r.handleFindSimilarVectors)

	r.read(tool("get_embedding_index_info",
		"Get the embedding index metadata of a feature group.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to inspect"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name")),
		r.handleGetEmbeddingIndexInfo)
}

type embeddingIndexArgs struct {
	IndexName          string `json:"index_name"`
	Name               string `json:"name"`
	Dimension          int    `json:"dimension"`
	SimilarityFunction string `json:"similarity_function"`
}

func (r *Registry) handleCreateEmbeddingIndex(ctx context.Context, args json.RawMessage) (any, error) {
	var a embeddingIndexArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	index := hopsworks.NewEmbeddingIndex(a.IndexName)
	return map[string]any{
		"status":     "created",
		"index_name": index.ResolveIndexName(session.Project().ID),
		"embeddings": []hopsworks.EmbeddingFeature{},
	}, nil
}

func (r *Registry) handleAddEmbeddingToIndex(ctx context.Context, args json.RawMessage) (any, error) {
	var a embeddingIndexArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	similarity, err := hopsworks.ParseSimilarityFunction(a.SimilarityFunction)
	if err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	index := hopsworks.NewEmbeddingIndex(a.IndexName)
	if err := index.AddEmbedding(a.Name, a.Dimension, similarity); err != nil {
		return nil, err
	}
	return map[string]any{
		"status":              "added",
		"index_name":          index.ResolveIndexName(session.Project().ID),
		"name":                a.Name,
		"dimension":           a.Dimension,
		"similarity_function": string(similarity),
	}, nil
}

type createEmbeddingFGArgs struct {
	Name               string              `json:"name"`
	Version            int                 `json:"version"`
	Description        string              `json:"description"`
	PrimaryKey         []string            `json:"primary_key"`
	EmbeddingName      string              `json:"embedding_name"`
	EmbeddingDimension int                 `json:"embedding_dimension"`
	SimilarityFunction string              `json:"similarity_function"`
	TimeTravelFormat   string              `json:"time_travel_format"`
	OnlineEnabled      *bool               `json:"online_enabled"`
	Features           []hopsworks.Feature `json:"features"`
	ProjectName        string              `json:"project_name"`
}

func (r *Registry) handleCreateFeatureGroupWithEmbedding(ctx context.Context, args json.RawMessage) (any, error) {
	var a createEmbeddingFGArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	similarity, err := hopsworks.ParseSimilarityFunction(a.SimilarityFunction)
	if err != nil {
		return nil, err
	}

	embeddingName := a.EmbeddingName
	if embeddingName == "" {
		embeddingName = "embedding"
	}
	dimension := a.EmbeddingDimension
	if dimension <= 0 {
		dimension = 768
	}
	index := hopsworks.NewEmbeddingIndex("")
	if err := index.AddEmbedding(embeddingName, dimension, similarity); err != nil {
		return nil, err
	}

	version := a.Version
	if version <= 0 {
		version = 1
	}
	timeTravel := a.TimeTravelFormat
	if timeTravel == "" {
		timeTravel = "HUDI"
	}
	online := true
	if a.OnlineEnabled != nil {
		online = *a.OnlineEnabled
	}

	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	fg, err := session.Client().CreateFeatureGroup(ctx, fs.ProjectID, fs.ID, hopsworks.CreateFeatureGroupRequest{
		Name:             a.Name,
		Version:          version,
		Description:      a.Description,
		PrimaryKey:       a.PrimaryKey,
		TimeTravelFormat: timeTravel,
		OnlineEnabled:    online,
		Features:         a.Features,
		EmbeddingIndex:   index,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":              "created",
		"name":                fg.Name,
		"version":             fg.Version,
		"description":         fg.Description,
		"embedding_name":      embeddingName,
		"embedding_dimension": dimension,
		"similarity_function": string(similarity),
		"primary_key":         a.PrimaryKey,
		"online_enabled":      online,
	}, nil
}

type insertEmbeddingArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	Data                string `json:"data"`
	EmbeddingColumn     string `json:"embedding_column"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleInsertEmbeddingVectors(ctx context.Context, args json.RawMessage) (any, error) {
	var a insertEmbeddingArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	rows, err := hopsworks.ParseSpineRows(a.Data)
	if err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}

	column := a.EmbeddingColumn
	if column == "" && fg.EmbeddingIndex != nil {
		column, _ = fg.EmbeddingIndex.DefaultColumn()
	}
	if err := session.Client().InsertRows(ctx, fs.ProjectID, fs.ID, fg.ID, rows); err != nil {
		return nil, err
	}
	return map[string]any{
		"status":                "inserted",
		"feature_group":         fg.Name,
		"feature_group_version": fg.Version,
		"rows_inserted":         len(rows),
		"embedding_column":      column,
	}, nil
}

type findSimilarArgs struct {
	FeatureGroupName    string    `json:"feature_group_name"`
	FeatureGroupVersion int       `json:"feature_group_version"`
	EmbeddingVector     []float64 `json:"embedding_vector"`
	K                   int       `json:"k"`
	EmbeddingColumn     string    `json:"embedding_column"`
	FilterExpression    string    `json:"filter_expression"`
	ProjectName         string    `json:"project_name"`
}

func (r *Registry) handleFindSimilarVectors(ctx context.Context, args json.RawMessage) (any, error) {
	const op = "find similar vectors"
	var a findSimilarArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.EmbeddingVector) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, op, "embedding_vector is required")
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.resolveFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if fg.EmbeddingIndex == nil {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, op,
			"feature group %q has no embedding index", fg.Name)
	}

	column := a.EmbeddingColumn
	if column == "" {
		column, err = fg.EmbeddingIndex.DefaultColumn()
		if err != nil {
			return nil, err
		}
	} else if _, ok := fg.EmbeddingIndex.GetEmbedding(column); !ok {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, op,
			"index has no embedding column %q", column)
	}

	var filter *hopsworks.NeighborFilter
	if a.FilterExpression != "" {
		compiled, err := exprfilter.Compile(a.FilterExpression, exprfilter.ColumnResolverFunc(fg.HasColumn))
		if err != nil {
			return nil, err
		}
		filter = &hopsworks.NeighborFilter{
			Column:   compiled.Column,
			Operator: string(compiled.Operator),
			Value:    compiled.Literal.Value,
		}
	}

	k := a.K
	if k <= 0 {
		k = 10
	}
	index := fg.EmbeddingIndex.ResolveIndexName(fs.ProjectID)
	neighbors, err := session.Client().FindNeighbors(ctx, fs.ProjectID, index, column, a.EmbeddingVector, k, filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":           "ok",
		"feature_group":    fg.Name,
		"index_name":       index,
		"embedding_column": column,
		"count":            len(neighbors),
		"neighbors":        neighbors,
	}, nil
}

func (r *Registry) handleGetEmbeddingIndexInfo(ctx context.Context, args json.RawMessage) (any, error) {
	var a validationHistoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	_, fs, fg, err := r.resolveFeatureGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if fg.EmbeddingIndex == nil {
		return nil, hopsworks.NewError(hopsworks.KindNotFound, "get embedding index info",
			"feature group %q has no embedding index", fg.Name)
	}
	return map[string]any{
		"status":        "ok",
		"feature_group": fg.Name,
		"index_name":    fg.EmbeddingIndex.ResolveIndexName(fs.ProjectID),
		"embeddings":    fg.EmbeddingIndex.Features,
	}, nil
}
