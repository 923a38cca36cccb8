// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/internal/udf"
)

func (r *Registry) registerFeatureViewTools() {
	r.write(tool("create_feature_view",
		"Create a feature view from a query plan over feature groups.",
		schema(map[string]any{
			"name":                     stringProp("Feature view name"),
			"version":                  numberProp("Version, default 1"),
			"description":              stringProp("Free-text description"),
			"query":                    objectProp("Query plan: base_name, base_version, selected_features, joins, filters, as_of_time"),
			"labels":                   stringArrayProp("Label (target) column names"),
			"inference_helper_columns": stringArrayProp("Columns returned only as inference helpers"),
			"training_helper_columns":  stringArrayProp("Columns returned only during training"),
			"logging_enabled":          boolProp("Enable feature logging on creation"),
			"project_name":             stringProp("Project whose feature store to use"),
		}, "name", "query")),
		r.handleCreateFeatureView)

	r.read(tool("get_feature_view",
		"Get a feature view by name and version.",
		schema(fvRefProps(), "name")),
		r.handleGetFeatureView)

	r.read(tool("list_feature_views",
		"List all feature views in the feature store.",
		schema(map[string]any{
			"project_name": stringProp("Project whose feature store to use"),
		})),
		r.handleListFeatureViews)

	r.write(tool("update_feature_view_description",
		"Update the description of a feature view.",
		schema(fvRefProps("description", stringProp("New description")), "name", "description")),
		r.handleUpdateFeatureViewDescription)

	r.destructive(tool("delete_feature_view",
		"Delete a feature view and all its training dataset metadata. This cannot be undone.",
		schema(fvRefProps(), "name")),
		r.handleDeleteFeatureView)

	r.read(tool("get_batch_data",
		"Read offline batch data through a feature view, optionally bounded by an event time window.",
		schema(fvRefProps(
			"start_time", stringProp("Event time window start"),
			"end_time", stringProp("Event time window end"),
			"limit", numberProp("Maximum rows to return"),
		), "name")),
		r.handleGetBatchData)

	r.write(tool("create_training_data",
		"Materialize a training dataset from a feature view and start the backing job.",
		schema(fvRefProps(
			"description", stringProp("Training dataset description"),
			"data_format", enumProp("Output format", "parquet", "csv", "tsv", "tfrecords", "avro", "orc"),
			"start_time", stringProp("Event time window start"),
			"end_time", stringProp("Event time window end"),
			"coalesce", boolProp("Coalesce the output into one file per split"),
			"seed", numberProp("Random seed for splitting"),
		), "name")),
		r.handleCreateTrainingData)

	r.read(tool("get_training_data",
		"Get the metadata of a training dataset created from a feature view.",
		schema(fvRefProps(
			"training_dataset_version", numberProp("Training dataset version, default 1"),
		), "name")),
		r.handleGetTrainingData)

	r.read(tool("get_feature_vector",
		"Look up a single online feature vector by primary key.",
		schema(fvRefProps(
			"entry", objectProp("Primary key values, e.g. {\"customer_id\": 1}"),
		), "name", "entry")),
		r.handleGetFeatureVector)

	r.read(tool("get_feature_vectors",
		"Look up multiple online feature vectors by primary key.",
		schema(fvRefProps(
			"entries", objectArrayProp("Primary key value objects, one per vector"),
		), "name", "entries")),
		r.handleGetFeatureVectors)

	r.read(tool("compute_on_demand_features",
		"Compute on-demand features for a feature vector by running a registered transformation function.",
		schema(fvRefProps(
			"feature_vector", objectProp("Feature vector to extend"),
			"transformation_function", stringProp("Registered transformation function to run"),
			"transformation_version", numberProp("Transformation function version, default 1"),
			"request_parameter", objectProp("Request-time parameters passed as the function's context"),
		), "name", "feature_vector", "transformation_function")),
		r.handleComputeOnDemandFeatures)

	r.read(tool("compute_on_demand_features_batch",
		"Compute on-demand features for multiple feature vectors with a registered transformation function.",
		schema(fvRefProps(
			"feature_vectors", objectArrayProp("Feature vectors to extend"),
			"transformation_function", stringProp("Registered transformation function to run"),
			"transformation_version", numberProp("Transformation function version, default 1"),
			"request_parameter", objectProp("Request-time parameters passed as the function's context"),
		), "name", "feature_vectors", "transformation_function")),
		r.handleComputeOnDemandFeaturesBatch)

	r.read(tool("transform",
		"Apply registered transformation functions to a feature vector, in order.",
		schema(fvRefProps(
			"feature_vector", objectProp("Feature vector to transform"),
			"transformation_functions", stringArrayProp("Transformation function names to apply in order"),
		), "name", "feature_vector", "transformation_functions")),
		r.handleTransform)

	r.read(tool("transform_batch",
		"Apply registered transformation functions to multiple feature vectors.",
		schema(fvRefProps(
			"feature_vectors", objectArrayProp("Feature vectors to transform"),
			"transformation_functions", stringArrayProp("Transformation function names to apply in order"),
		), "name", "feature_vectors", "transformation_functions")),
		r.handleTransformBatch)

	r.read(tool("get_inference_helper",
		"Get only the inference helper columns of an online feature vector.",
		schema(fvRefProps(
			"entry", objectProp("Primary key values"),
		), "name", "entry")),
		r.handleGetInferenceHelper)

	r.read(tool("init_serving",
		"Prepare a feature view for online serving and return its prepared lookup statements.",
		schema(fvRefProps(), "name")),
		r.handleInitServing)

	r.read(tool("init_batch_scoring",
		"Prepare a feature view for batch scoring and return the batch query SQL.",
		schema(fvRefProps(
			"training_dataset_version", numberProp("Training dataset version whose schema to score against"),
		), "name")),
		r.handleInitBatchScoring)

	r.write(tool("enable_logging",
		"Enable feature logging on a feature view.",
		schema(fvRefProps(), "name")),
		r.handleEnableLogging)

	r.write(tool("log_features",
		"Log served features, transformed features and predictions for a feature view.",
		schema(fvRefProps(
			"features", objectProp("Untransformed feature values"),
			"transformed_features", objectProp("Transformed feature values"),
			"predictions", objectProp("Model prediction values"),
			"training_dataset_version", numberProp("Training dataset version used by the model"),
			"model_name", stringProp("Model that consumed the features"),
			"model_version", numberProp("Model version"),
		), "name")),
		r.handleLogFeatures)

	r.write(tool("materialize_log",
		"Start the job that materializes buffered feature log entries.",
		schema(fvRefProps(
			"transformed", boolProp("Materialize the transformed log instead of both"),
		), "name")),
		r.handleMaterializeLog)

	r.read(tool("get_log_timeline",
		"Get the most recent feature log materializations of a feature view.",
		schema(fvRefProps(
			"limit", numberProp("Maximum timeline entries to return"),
		), "name")),
		r.handleGetLogTimeline)

	r.read(tool("read_log",
		"Read logged feature entries of a feature view with optional filters.",
		schema(fvRefProps(
			"start_time", stringProp("Log window start"),
			"end_time", stringProp("Log window end"),
			"training_dataset_version", numberProp("Filter by training dataset version"),
			"model_name", stringProp("Filter by model name"),
			"model_version", numberProp("Filter by model version"),
			"transformed", boolProp("Read the transformed log"),
			"limit", numberProp("Maximum entries to return"),
		), "name")),
		r.handleReadLog)

	r.write(tool("pause_logging",
		"Pause feature logging on a feature view.",
		schema(fvRefProps(), "name")),
		r.handlePauseLogging)

	r.write(tool("resume_logging",
		"Resume feature logging on a feature view.",
		schema(fvRefProps(), "name")),
		r.handleResumeLogging)

	r.destructive(tool("delete_log",
		"Delete logged feature data of a feature view. This cannot be undone.",
		schema(fvRefProps(
			"transformed", boolProp("Delete only the transformed (or only the untransformed) log"),
		), "name")),
		r.handleDeleteLog)

	r.write(tool("create_train_test_split",
		"Materialize a training dataset split into train and test sets.",
		schema(fvRefProps(
			"test_size", floatProp("Fraction of data in the test split, e.g. 0.2"),
			"description", stringProp("Training dataset description"),
			"data_format", enumProp("Output format", "parquet", "csv", "tsv", "tfrecords", "avro", "orc"),
			"start_time", stringProp("Event time window start"),
			"end_time", stringProp("Event time window end"),
			"seed", numberProp("Random seed for splitting"),
		), "name", "test_size")),
		r.handleCreateTrainTestSplit)

	r.read(tool("get_train_test_split",
		"Get the metadata of a train/test split training dataset.",
		schema(fvRefProps(
			"training_dataset_version", numberProp("Training dataset version, default 1"),
		), "name")),
		r.handleGetTrainTestSplit)
}

// fvRefProps builds the shared feature view reference schema plus extra
// properties given as name/definition pairs.
func fvRefProps(extra ...any) map[string]any {
	props := map[string]any{
		"name":         stringProp("Feature view name"),
		"version":      numberProp("Feature view version, default 1"),
		"project_name": stringProp("Project whose feature store to use"),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		props[extra[i].(string)] = extra[i+1]
	}
	return props
}

type featureViewRef struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	ProjectName string `json:"project_name"`
}

func (ref featureViewRef) version() int {
	if ref.Version <= 0 {
		return 1
	}
	return ref.Version
}

func (r *Registry) resolveFeatureView(ctx context.Context, ref featureViewRef) (*hopsworks.Session, *hopsworks.FeatureStore, *hopsworks.FeatureView, error) {
	session, fs, err := r.featureStore(ctx, ref.ProjectName)
	if err != nil {
		return nil, nil, nil, err
	}
	fv, err := session.Client().GetFeatureView(ctx, fs.ProjectID, fs.ID, ref.Name, ref.version())
	if err != nil {
		return nil, nil, nil, err
	}
	return session, fs, fv, nil
}

type createFeatureViewArgs struct {
	Name                   string           `json:"name"`
	Version                int              `json:"version"`
	Description            string           `json:"description"`
	Query                  *createFVQuery   `json:"query"`
	Labels                 []string         `json:"labels"`
	InferenceHelperColumns []string         `json:"inference_helper_columns"`
	TrainingHelperColumns  []string         `json:"training_helper_columns"`
	LoggingEnabled         bool             `json:"logging_enabled"`
	ProjectName            string           `json:"project_name"`
}

type createFVQuery struct {
	BaseName         string          `json:"base_name"`
	BaseVersion      int             `json:"base_version"`
	SelectedFeatures []string        `json:"selected_features"`
	Joins            []querySpecJoin `json:"joins"`
	Filters          []string        `json:"filters"`
	AsOfTime         string          `json:"as_of_time"`
}

func (r *Registry) handleCreateFeatureView(ctx context.Context, args json.RawMessage) (any, error) {
	var a createFeatureViewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Query == nil || a.Query.BaseName == "" {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "create feature view", "query.base_name is required")
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}

	plan, err := r.buildQueryPlan(ctx, session, fs, analyzeQueryArgs{
		BaseName:         a.Query.BaseName,
		BaseVersion:      a.Query.BaseVersion,
		SelectedFeatures: a.Query.SelectedFeatures,
		Joins:            a.Query.Joins,
		Filters:          a.Query.Filters,
		AsOfTime:         a.Query.AsOfTime,
		ProjectName:      a.ProjectName,
	})
	if err != nil {
		return nil, err
	}

	if a.Version <= 0 {
		a.Version = 1
	}
	fv, err := session.Client().CreateFeatureView(ctx, fs.ProjectID, fs.ID, hopsworks.CreateFeatureViewRequest{
		Name:                   a.Name,
		Version:                a.Version,
		Description:            a.Description,
		Query:                  plan,
		Labels:                 a.Labels,
		InferenceHelperColumns: a.InferenceHelperColumns,
		TrainingHelperColumns:  a.TrainingHelperColumns,
		LoggingEnabled:         a.LoggingEnabled,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "feature_view": fv}, nil
}

func (r *Registry) handleGetFeatureView(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureViewRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	_, _, fv, err := r.resolveFeatureView(ctx, ref)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_view": fv}, nil
}

func (r *Registry) handleListFeatureViews(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureStoreArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	views, err := session.Client().ListFeatureViews(ctx, fs.ProjectID, fs.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(views), "feature_views": views}, nil
}

type updateFVDescriptionArgs struct {
	featureViewRef
	Description string `json:"description"`
}

func (r *Registry) handleUpdateFeatureViewDescription(ctx context.Context, args json.RawMessage) (any, error) {
	var a updateFVDescriptionArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, a.ProjectName)
	if err != nil {
		return nil, err
	}
	fv, err := session.Client().UpdateFeatureViewDescription(ctx, fs.ProjectID, fs.ID, a.Name, a.version(), a.Description)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "feature_view": fv}, nil
}

func (r *Registry) handleDeleteFeatureView(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureViewRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	session, fs, err := r.featureStore(ctx, ref.ProjectName)
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteFeatureView(ctx, fs.ProjectID, fs.ID, ref.Name, ref.version()); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": ref.Name, "version": ref.version()}, nil
}

type batchDataArgs struct {
	featureViewRef
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Limit     int    `json:"limit"`
}

func (r *Registry) handleGetBatchData(ctx context.Context, args json.RawMessage) (any, error) {
	var a batchDataArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	result, err := session.Client().GetBatchData(ctx, fs, fv, hopsworks.BatchDataOptions{
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Limit:     r.rowLimit(a.Limit),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "columns": result.Columns, "rows": result.Rows, "count": len(result.Rows)}, nil
}

type createTrainingDataArgs struct {
	featureViewRef
	Description string  `json:"description"`
	DataFormat  string  `json:"data_format"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Coalesce    bool    `json:"coalesce"`
	Seed        int64   `json:"seed"`
	TestSize    float64 `json:"test_size"`
}

func (r *Registry) handleCreateTrainingData(ctx context.Context, args json.RawMessage) (any, error) {
	var a createTrainingDataArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return r.createTrainingData(ctx, a, nil)
}

func (r *Registry) createTrainingData(ctx context.Context, a createTrainingDataArgs, splits []hopsworks.TrainingDatasetSplit) (any, error) {
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	td, exec, err := session.Client().CreateTrainingData(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, hopsworks.TrainingDataRequest{
		Description: a.Description,
		DataFormat:  a.DataFormat,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Coalesce:    a.Coalesce,
		Seed:        a.Seed,
		Splits:      splits,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "training_dataset": td, "execution": exec}, nil
}

type trainingDataRef struct {
	featureViewRef
	TrainingDatasetVersion int `json:"training_dataset_version"`
}

func (ref trainingDataRef) tdVersion() int {
	if ref.TrainingDatasetVersion <= 0 {
		return 1
	}
	return ref.TrainingDatasetVersion
}

func (r *Registry) handleGetTrainingData(ctx context.Context, args json.RawMessage) (any, error) {
	var a trainingDataRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	td, err := session.Client().GetTrainingData(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, a.tdVersion())
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "training_dataset": td}, nil
}

// lookupVectors runs online lookups through the view's prepared
// statements.
func (r *Registry) lookupVectors(ctx context.Context, session *hopsworks.Session, fs *hopsworks.FeatureStore, fv *hopsworks.FeatureView, entries []map[string]any) ([]map[string]any, error) {
	statements, err := session.Client().GetServingPreparedStatements(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version)
	if err != nil {
		return nil, err
	}
	return session.Client().FeatureVectors(ctx, fs, fv, statements, entries)
}

type featureVectorArgs struct {
	featureViewRef
	Entry map[string]any `json:"entry"`
}

func (r *Registry) handleGetFeatureVector(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureVectorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Entry) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "get feature vector", "entry is required")
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	vectors, err := r.lookupVectors(ctx, session, fs, fv, []map[string]any{a.Entry})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindNotFound, "get feature vector", "no online row for the given entry")
	}
	return map[string]any{"status": "ok", "vector": vectors[0]}, nil
}

type featureVectorsArgs struct {
	featureViewRef
	Entries []map[string]any `json:"entries"`
}

func (r *Registry) handleGetFeatureVectors(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureVectorsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Entries) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "get feature vectors", "entries is required")
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	vectors, err := r.lookupVectors(ctx, session, fs, fv, a.Entries)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(vectors), "vectors": vectors}, nil
}

// applyFunction runs a registered transformation function over one
// feature vector and merges its outputs back into a copy of the vector.
func (r *Registry) applyFunction(ctx context.Context, session *hopsworks.Session, fs *hopsworks.FeatureStore, tfName string, tfVersion int, vector, requestParams map[string]any) (map[string]any, error) {
	if tfVersion <= 0 {
		tfVersion = 1
	}
	tf, err := session.Client().GetTransformationFunction(ctx, fs.ProjectID, fs.ID, tfName, tfVersion)
	if err != nil {
		return nil, err
	}
	fn, err := r.loader.Load(tf.SourceCode)
	if err != nil {
		return nil, err
	}

	out, err := fn.Invoke(vector, udf.InvokeOptions{Context: requestParams})
	if err != nil {
		return nil, err
	}

	result := make(map[string]any, len(vector)+1)
	for k, v := range vector {
		result[k] = v
	}
	mergeFunctionOutput(result, tf, fn, out)
	return result, nil
}

// mergeFunctionOutput writes function outputs into the vector under the
// registered output column names, falling back to the function name.
func mergeFunctionOutput(vector map[string]any, tf *hopsworks.TransformationFunction, fn *udf.Function, out any) {
	names := tf.OutputColumnNames
	if outs, ok := out.([]any); ok && len(names) > 1 {
		for i, v := range outs {
			if i < len(names) {
				vector[names[i]] = v
			}
		}
		return
	}
	name := fn.Name
	if len(names) > 0 {
		name = names[0]
	}
	vector[name] = out
}

type onDemandArgs struct {
	featureViewRef
	FeatureVector          map[string]any   `json:"feature_vector"`
	FeatureVectors         []map[string]any `json:"feature_vectors"`
	TransformationFunction string           `json:"transformation_function"`
	TransformationVersion  int              `json:"transformation_version"`
	RequestParameter       map[string]any   `json:"request_parameter"`
}

func (r *Registry) handleComputeOnDemandFeatures(ctx context.Context, args json.RawMessage) (any, error) {
	var a onDemandArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	vector, err := r.applyFunction(ctx, session, fs, a.TransformationFunction, a.TransformationVersion, a.FeatureVector, a.RequestParameter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_view_name": fv.Name, "feature_vector": vector}, nil
}

func (r *Registry) handleComputeOnDemandFeaturesBatch(ctx context.Context, args json.RawMessage) (any, error) {
	var a onDemandArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, 0, len(a.FeatureVectors))
	for _, vector := range a.FeatureVectors {
		out, err := r.applyFunction(ctx, session, fs, a.TransformationFunction, a.TransformationVersion, vector, a.RequestParameter)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return map[string]any{"status": "ok", "feature_view_name": fv.Name, "count": len(results), "feature_vectors": results}, nil
}

type transformArgs struct {
	featureViewRef
	FeatureVector           map[string]any   `json:"feature_vector"`
	FeatureVectors          []map[string]any `json:"feature_vectors"`
	TransformationFunctions []string         `json:"transformation_functions"`
}

func (r *Registry) transformVector(ctx context.Context, session *hopsworks.Session, fs *hopsworks.FeatureStore, names []string, vector map[string]any) (map[string]any, error) {
	out := vector
	for _, name := range names {
		var err error
		out, err = r.applyFunction(ctx, session, fs, name, 1, out, nil)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Registry) handleTransform(ctx context.Context, args json.RawMessage) (any, error) {
	var a transformArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	vector, err := r.transformVector(ctx, session, fs, a.TransformationFunctions, a.FeatureVector)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "feature_view_name": fv.Name, "feature_vector": vector}, nil
}

func (r *Registry) handleTransformBatch(ctx context.Context, args json.RawMessage) (any, error) {
	var a transformArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]any, 0, len(a.FeatureVectors))
	for _, vector := range a.FeatureVectors {
		out, err := r.transformVector(ctx, session, fs, a.TransformationFunctions, vector)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return map[string]any{"status": "ok", "feature_view_name": fv.Name, "count": len(results), "feature_vectors": results}, nil
}

func (r *Registry) handleGetInferenceHelper(ctx context.Context, args json.RawMessage) (any, error) {
	var a featureVectorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Entry) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "get inference helper", "entry is required")
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	vectors, err := r.lookupVectors(ctx, session, fs, fv, []map[string]any{a.Entry})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindNotFound, "get inference helper", "no online row for the given entry")
	}

	helpers := make(map[string]any)
	for _, f := range fv.Features {
		if !f.InferenceHelperColumn {
			continue
		}
		for col, val := range vectors[0] {
			if strings.EqualFold(col, f.Name) {
				helpers[f.Name] = val
			}
		}
	}
	return map[string]any{"status": "ok", "helpers": helpers}, nil
}

func (r *Registry) handleInitServing(ctx context.Context, args json.RawMessage) (any, error) {
	var ref featureViewRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, ref)
	if err != nil {
		return nil, err
	}
	statements, err := session.Client().GetServingPreparedStatements(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":              "initialized",
		"feature_view_name":   fv.Name,
		"serving_keys":        fv.PrimaryKeys(),
		"prepared_statements": len(statements),
	}, nil
}

func (r *Registry) handleInitBatchScoring(ctx context.Context, args json.RawMessage) (any, error) {
	var a trainingDataRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	if fv.Query == nil || fv.Query.Base == nil {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "init batch scoring", "feature view %q has no query metadata", fv.Name)
	}
	sql, err := fv.Query.SQL(fs.OfflineFeatureStoreName, fs.OnlineFeatureStoreName, false)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":                   "initialized",
		"feature_view_name":        fv.Name,
		"training_dataset_version": a.TrainingDatasetVersion,
		"batch_query":              sql,
	}, nil
}

func (r *Registry) handleEnableLogging(ctx context.Context, args json.RawMessage) (any, error) {
	return r.loggingAction(ctx, args, "enabled", func(ctx context.Context, s *hopsworks.Session, fs *hopsworks.FeatureStore, fv *hopsworks.FeatureView) error {
		return s.Client().EnableLogging(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version)
	})
}

func (r *Registry) handlePauseLogging(ctx context.Context, args json.RawMessage) (any, error) {
	return r.loggingAction(ctx, args, "paused", func(ctx context.Context, s *hopsworks.Session, fs *hopsworks.FeatureStore, fv *hopsworks.FeatureView) error {
		return s.Client().PauseLogging(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version)
	})
}

func (r *Registry) handleResumeLogging(ctx context.Context, args json.RawMessage) (any, error) {
	return r.loggingAction(ctx, args, "resumed", func(ctx context.Context, s *hopsworks.Session, fs *hopsworks.FeatureStore, fv *hopsworks.FeatureView) error {
		return s.Client().ResumeLogging(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version)
	})
}

func (r *Registry) loggingAction(ctx context.Context, args json.RawMessage, status string, action func(context.Context, *hopsworks.Session, *hopsworks.FeatureStore, *hopsworks.FeatureView) error) (any, error) {
	var ref featureViewRef
	if err := decodeArgs(args, &ref); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := action(ctx, session, fs, fv); err != nil {
		return nil, err
	}
	return map[string]any{"status": status, "feature_view_name": fv.Name, "feature_view_version": fv.Version}, nil
}

type logFeaturesArgs struct {
	featureViewRef
	Features               map[string]any `json:"features"`
	TransformedFeatures    map[string]any `json:"transformed_features"`
	Predictions            map[string]any `json:"predictions"`
	TrainingDatasetVersion int            `json:"training_dataset_version"`
	ModelName              string         `json:"model_name"`
	ModelVersion           int            `json:"model_version"`
}

func (r *Registry) handleLogFeatures(ctx context.Context, args json.RawMessage) (any, error) {
	var a logFeaturesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Features) == 0 && len(a.TransformedFeatures) == 0 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "log features", "features or transformed_features is required")
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	err = session.Client().LogFeatures(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, hopsworks.LogEntry{
		Features:               a.Features,
		TransformedFeatures:    a.TransformedFeatures,
		Predictions:            a.Predictions,
		TrainingDatasetVersion: a.TrainingDatasetVersion,
		ModelName:              a.ModelName,
		ModelVersion:           a.ModelVersion,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "logged", "feature_view_name": fv.Name}, nil
}

type logScopeArgs struct {
	featureViewRef
	Transformed *bool `json:"transformed"`
}

func (r *Registry) handleMaterializeLog(ctx context.Context, args json.RawMessage) (any, error) {
	var a logScopeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	exec, err := session.Client().MaterializeLog(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, a.Transformed)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "materializing", "execution": exec}, nil
}

type logTimelineArgs struct {
	featureViewRef
	Limit int `json:"limit"`
}

func (r *Registry) handleGetLogTimeline(ctx context.Context, args json.RawMessage) (any, error) {
	var a logTimelineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	timeline, err := session.Client().GetLogTimeline(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, a.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(timeline), "timeline": timeline}, nil
}

type readLogArgs struct {
	featureViewRef
	StartTime              string `json:"start_time"`
	EndTime                string `json:"end_time"`
	TrainingDatasetVersion int    `json:"training_dataset_version"`
	ModelName              string `json:"model_name"`
	ModelVersion           int    `json:"model_version"`
	Transformed            *bool  `json:"transformed"`
	Limit                  int    `json:"limit"`
}

func (r *Registry) handleReadLog(ctx context.Context, args json.RawMessage) (any, error) {
	var a readLogArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	entries, err := session.Client().ReadLog(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, hopsworks.ReadLogOptions{
		StartTime:              a.StartTime,
		EndTime:                a.EndTime,
		TrainingDatasetVersion: a.TrainingDatasetVersion,
		ModelName:              a.ModelName,
		ModelVersion:           a.ModelVersion,
		Transformed:            a.Transformed,
		Limit:                  r.rowLimit(a.Limit),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(entries), "entries": entries}, nil
}

func (r *Registry) handleDeleteLog(ctx context.Context, args json.RawMessage) (any, error) {
	var a logScopeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteLog(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, a.Transformed); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "feature_view_name": fv.Name}, nil
}

func (r *Registry) handleCreateTrainTestSplit(ctx context.Context, args json.RawMessage) (any, error) {
	var a createTrainingDataArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TestSize <= 0 || a.TestSize >= 1 {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "create train test split", "test_size must be between 0 and 1 exclusive, got %v", a.TestSize)
	}
	splits := []hopsworks.TrainingDatasetSplit{
		{Name: "train", Percentage: 1 - a.TestSize},
		{Name: "test", Percentage: a.TestSize},
	}
	return r.createTrainingData(ctx, a, splits)
}

func (r *Registry) handleGetTrainTestSplit(ctx context.Context, args json.RawMessage) (any, error) {
	var a trainingDataRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, fs, fv, err := r.resolveFeatureView(ctx, a.featureViewRef)
	if err != nil {
		return nil, err
	}
	td, err := session.Client().GetTrainingData(ctx, fs.ProjectID, fs.ID, fv.Name, fv.Version, a.tdVersion())
	if err != nil {
		return nil, err
	}
	if !td.HasSplit("train") || !td.HasSplit("test") {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "get train test split",
			"training dataset %q version %d has no train/test splits", td.Name, td.Version)
	}
	return map[string]any{"status": "ok", "training_dataset": td, "splits": td.Splits}, nil
}
