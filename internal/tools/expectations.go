// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerExpectationTools() {
	r.write(tool("create_expectation_suite",
		"Attach an empty expectation suite to a feature group, replacing any existing suite.",
		schema(map[string]any{
			"feature_group_name":          stringProp("Feature group to attach the suite to"),
			"feature_group_version":       numberProp("Feature group version, default 1"),
			"name":                        stringProp("Suite name, defaults to <feature_group>_expectations"),
			"run_validation":              boolProp("Run validation on insert operations, default true"),
			"validation_ingestion_policy": enumProp("always inserts regardless of outcome, strict only on success", "always", "strict"),
			"project_name":                stringProp("Project whose feature store to use"),
		}, "feature_group_name")),
		r.handleCreateExpectationSuite)

	r.write(tool("add_column_expectation",
		"Add a column expectation to a feature group's suite, creating the suite when missing.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to validate"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"column_name":           stringProp("Column the expectation applies to"),
			"expectation_type":      stringProp("Expectation type, e.g. expect_column_values_to_be_between, expect_column_values_to_not_be_null, expect_column_values_to_be_unique, expect_column_values_to_be_in_set, expect_column_values_to_match_regex"),
			"min_value":             floatProp("Minimum for range expectations"),
			"max_value":             floatProp("Maximum for range expectations"),
			"value":                 stringProp("Single comparison value, e.g. a regex"),
			"value_set":             objectArrayProp("Allowed values for set expectations"),
			"mostly":                floatProp("Fraction of values that must pass, 0.0 to 1.0"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "column_name", "expectation_type")),
		r.handleAddColumnExpectation)

	r.read(tool("get_feature_group_expectations",
		"Get the expectation suite attached to a feature group.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to inspect"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name")),
		r.handleGetFeatureGroupExpectations)

	r.destructive(tool("remove_expectation",
		"Remove one expectation from a feature group's suite by id.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group owning the suite"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"expectation_id":        numberProp("Expectation to remove"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "expectation_id")),
		r.handleRemoveExpectation)

	r.read(tool("validate_data",
		"Validate rows against a feature group's expectation suite, optionally saving the report.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group whose suite to validate against"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"data":                  stringProp("JSON array of row objects to validate"),
			"save_report":           boolProp("Store the validation report with the feature group"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name", "data")),
		r.handleValidateData)

	r.read(tool("get_validation_history",
		"List past validation reports of a feature group, newest first.",
		schema(map[string]any{
			"feature_group_name":    stringProp("Feature group to inspect"),
			"feature_group_version": numberProp("Feature group version, default 1"),
			"limit":                 numberProp("Maximum reports to return, default 5"),
			"project_name":          stringProp("Project whose feature store to use"),
		}, "feature_group_name")),
		r.handleGetValidationHistory)
}

// expectationGroup resolves the feature group an expectation tool
// targets, falling back to external feature groups the same way the
// feature catalog does.
func (r *Registry) expectationGroup(ctx context.Context, ref featureGroupRef) (*hopsworks.Session, *hopsworks.FeatureStore, *hopsworks.FeatureGroup, error) {
	session, fs, err := r.featureStore(ctx, ref.ProjectName)
	if err != nil {
		return nil, nil, nil, err
	}
	fg, err := r.lookupQueryGroup(ctx, session, fs, ref.Name, ref.version())
	if err != nil {
		return nil, nil, nil, err
	}
	return session, fs, fg, nil
}

func ingestionPolicy(name string) (hopsworks.ValidationIngestionPolicy, error) {
	switch name {
	case "", "always":
		return hopsworks.IngestAlways, nil
	case "strict":
		return hopsworks.IngestStrict, nil
	default:
		return "", hopsworks.NewError(hopsworks.KindInvalidArgument, "expectation suite",
			"unknown validation ingestion policy %q (expected always or strict)", name)
	}
}

type createSuiteArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	Name                string `json:"name"`
	RunValidation       *bool  `json:"run_validation"`
	IngestionPolicy     string `json:"validation_ingestion_policy"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleCreateExpectationSuite(ctx context.Context, args json.RawMessage) (any, error) {
	var a createSuiteArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	policy, err := ingestionPolicy(a.IngestionPolicy)
	if err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.expectationGroup(ctx, ref)
	if err != nil {
		return nil, err
	}

	name := a.Name
	if name == "" {
		name = fg.Name + "_expectations"
	}
	runValidation := true
	if a.RunValidation != nil {
		runValidation = *a.RunValidation
	}
	suite, err := session.Client().SaveExpectationSuite(ctx, fs.ProjectID, fs.ID, fg.ID, &hopsworks.ExpectationSuite{
		Name:                      name,
		RunValidation:             runValidation,
		ValidationIngestionPolicy: policy,
		Expectations:              []hopsworks.Expectation{},
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":                      "created",
		"name":                        suite.Name,
		"feature_group":               fg.Name,
		"run_validation":              runValidation,
		"validation_ingestion_policy": string(policy),
		"expectations_count":          len(suite.Expectations),
	}, nil
}

type addExpectationArgs struct {
	FeatureGroupName    string   `json:"feature_group_name"`
	FeatureGroupVersion int      `json:"feature_group_version"`
	ColumnName          string   `json:"column_name"`
	ExpectationType     string   `json:"expectation_type"`
	MinValue            *float64 `json:"min_value"`
	MaxValue            *float64 `json:"max_value"`
	Value               any      `json:"value"`
	ValueSet            []any    `json:"value_set"`
	Mostly              *float64 `json:"mostly"`
	ProjectName         string   `json:"project_name"`
}

func (r *Registry) handleAddColumnExpectation(ctx context.Context, args json.RawMessage) (any, error) {
	var a addExpectationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.expectationGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !fg.HasColumn(a.ColumnName) {
		return nil, hopsworks.NewError(hopsworks.KindInvalidArgument, "add column expectation",
			"feature group %q has no column %q", fg.Name, a.ColumnName)
	}

	suite, err := session.Client().GetExpectationSuite(ctx, fs.ProjectID, fs.ID, fg.ID)
	created := false
	if hopsworks.IsNotFound(err) {
		suite, err = session.Client().SaveExpectationSuite(ctx, fs.ProjectID, fs.ID, fg.ID, &hopsworks.ExpectationSuite{
			Name:          fg.Name + "_expectations",
			RunValidation: true,
			Expectations:  []hopsworks.Expectation{},
		})
		created = true
	}
	if err != nil {
		return nil, err
	}

	kwargs := map[string]any{"column": a.ColumnName}
	if a.MinValue != nil {
		kwargs["min_value"] = *a.MinValue
	}
	if a.MaxValue != nil {
		kwargs["max_value"] = *a.MaxValue
	}
	if a.Value != nil {
		kwargs["value"] = a.Value
	}
	if a.ValueSet != nil {
		kwargs["value_set"] = a.ValueSet
	}
	if a.Mostly != nil {
		kwargs["mostly"] = *a.Mostly
	}

	exp, err := session.Client().AddExpectation(ctx, fs.ProjectID, fs.ID, fg.ID, suite.ID, hopsworks.Expectation{
		ExpectationType: a.ExpectationType,
		Kwargs:          kwargs,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":           "added",
		"feature_group":    fg.Name,
		"suite":            suite.Name,
		"suite_created":    created,
		"expectation_id":   exp.ID,
		"expectation_type": exp.ExpectationType,
		"column":           a.ColumnName,
	}, nil
}

func (r *Registry) handleGetFeatureGroupExpectations(ctx context.Context, args json.RawMessage) (any, error) {
	var a validationHistoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.expectationGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	suite, err := session.Client().GetExpectationSuite(ctx, fs.ProjectID, fs.ID, fg.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":             "ok",
		"feature_group":      fg.Name,
		"suite":              suite,
		"expectations_count": len(suite.Expectations),
	}, nil
}

type removeExpectationArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	ExpectationID       int    `json:"expectation_id"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleRemoveExpectation(ctx context.Context, args json.RawMessage) (any, error) {
	var a removeExpectationArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.expectationGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	suite, err := session.Client().GetExpectationSuite(ctx, fs.ProjectID, fs.ID, fg.ID)
	if err != nil {
		return nil, err
	}
	if err := session.Client().RemoveExpectation(ctx, fs.ProjectID, fs.ID, fg.ID, suite.ID, a.ExpectationID); err != nil {
		return nil, err
	}
	return map[string]any{
		"status":         "removed",
		"feature_group":  fg.Name,
		"expectation_id": a.ExpectationID,
	}, nil
}

type validateDataArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	Data                string `json:"data"`
	SaveReport          bool   `json:"save_report"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleValidateData(ctx context.Context, args json.RawMessage) (any, error) {
	var a validateDataArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	rows, err := hopsworks.ParseSpineRows(a.Data)
	if err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.expectationGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	suite, err := session.Client().GetExpectationSuite(ctx, fs.ProjectID, fs.ID, fg.ID)
	if err != nil {
		return nil, err
	}

	report := hopsworks.ValidateRows(suite, rows)
	if a.SaveReport {
		if err := session.Client().SaveValidationReport(ctx, fs.ProjectID, fs.ID, fg.ID, report); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"status":             "validated",
		"feature_group":      fg.Name,
		"rows_validated":     report.RowsValidated,
		"validation_success": report.Success,
		"results":            report.Results,
		"save_report":        a.SaveReport,
	}, nil
}

type validationHistoryArgs struct {
	FeatureGroupName    string `json:"feature_group_name"`
	FeatureGroupVersion int    `json:"feature_group_version"`
	Limit               int    `json:"limit"`
	ProjectName         string `json:"project_name"`
}

func (r *Registry) handleGetValidationHistory(ctx context.Context, args json.RawMessage) (any, error) {
	var a validationHistoryArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ref := featureGroupRef{Name: a.FeatureGroupName, Version: a.FeatureGroupVersion, ProjectName: a.ProjectName}
	session, fs, fg, err := r.expectationGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	limit := a.Limit
	if limit <= 0 {
		limit = 5
	}
	reports, err := session.Client().ListValidationReports(ctx, fs.ProjectID, fs.ID, fg.ID, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]any, 0, len(reports))
	for _, report := range reports {
		passed := 0
		for _, res := range report.Results {
			if res.Success {
				passed++
			}
		}
		summaries = append(summaries, map[string]any{
			"id":                  report.ID,
			"time":                report.ValidationTime,
			"success":             report.Success,
			"expectations_passed": passed,
			"expectations_failed": len(report.Results) - passed,
			"total_expectations":  len(report.Results),
		})
	}
	return map[string]any{
		"status":        "ok",
		"feature_group": fg.Name,
		"count":         len(summaries),
		"reports":       summaries,
	}, nil
}
