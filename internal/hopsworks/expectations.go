// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// ValidationIngestionPolicy decides what happens to inserted data when
// validation fails: ALWAYS ingests regardless, STRICT rejects.
type ValidationIngestionPolicy string

const (
	IngestAlways ValidationIngestionPolicy = "ALWAYS"
	IngestStrict ValidationIngestionPolicy = "STRICT"
)

// Expectation is a single data quality rule on a column.
type Expectation struct {
	ID              int            `json:"id,omitempty"`
	ExpectationType string         `json:"expectationType"`
	Kwargs          map[string]any `json:"kwargs"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// Column returns the column the expectation applies to.
func (e Expectation) Column() string {
	col, _ := e.Kwargs["column"].(string)
	return col
}

// ExpectationSuite is the set of data quality rules attached to a
// feature group.
type ExpectationSuite struct {
	ID                        int                       `json:"id,omitempty"`
	Name                      string                    `json:"expectationSuiteName"`
	RunValidation             bool                      `json:"runValidation"`
	ValidationIngestionPolicy ValidationIngestionPolicy `json:"validationIngestionPolicy,omitempty"`
	Expectations              []Expectation             `json:"expectations"`
	Meta                      map[string]any            `json:"meta,omitempty"`
}

func suitePath(projectID, fsID, fgID int) string {
	return fmt.Sprintf("%s/%d/expectationsuite", fgRoot(projectID, fsID), fgID)
}

// GetExpectationSuite returns the suite attached to a feature group.
func (c *Client) GetExpectationSuite(ctx context.Context, projectID, fsID, fgID int) (*ExpectationSuite, error) {
	const op = "get expectation suite"
	var resp itemsEnvelope[ExpectationSuite]
	if err := c.get(ctx, op, suitePath(projectID, fsID, fgID), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, op, "feature group %d has no expectation suite", fgID)
	}
	return &resp.Items[0], nil
}

// SaveExpectationSuite attaches a suite to a feature group, replacing
// any existing one.
func (c *Client) SaveExpectationSuite(ctx context.Context, projectID, fsID, fgID int, suite *ExpectationSuite) (*ExpectationSuite, error) {
	var saved ExpectationSuite
	if err := c.put(ctx, "save expectation suite", suitePath(projectID, fsID, fgID), nil, suite, &saved); err != nil {
		return nil, err
	}
	if saved.Name == "" {
		saved = *suite
	}
	return &saved, nil
}

// AddExpectation appends one rule to the attached suite.
func (c *Client) AddExpectation(ctx context.Context, projectID, fsID, fgID, suiteID int, exp Expectation) (*Expectation, error) {
	var created Expectation
	path := fmt.Sprintf("%s/%d/expectations", suitePath(projectID, fsID, fgID), suiteID)
	if err := c.post(ctx, "add expectation", path, nil, exp, &created); err != nil {
		return nil, err
	}
	if created.ExpectationType == "" {
		created = exp
	}
	return &created, nil
}

// RemoveExpectation deletes one rule from the attached suite.
func (c *Client) RemoveExpectation(ctx context.Context, projectID, fsID, fgID, suiteID, expectationID int) error {
	path := fmt.Sprintf("%s/%d/expectations/%d", suitePath(projectID, fsID, fgID), suiteID, expectationID)
	return c.delete(ctx, "remove expectation", path, nil)
}

// ValidationResult is the outcome of one expectation on one dataset.
type ValidationResult struct {
	ExpectationType string `json:"expectationType"`
	Column          string `json:"column,omitempty"`
	Success         bool   `json:"success"`
	ObservedValue   any    `json:"observedValue,omitempty"`
	Message         string `json:"message,omitempty"`
}

// ValidationReport summarizes one validation run.
type ValidationReport struct {
	ID             int                `json:"id,omitempty"`
	Success        bool               `json:"success"`
	ValidationTime string             `json:"validationTime"`
	RowsValidated  int                `json:"rowsValidated"`
	Results        []ValidationResult `json:"results"`
}

// SaveValidationReport stores a report with the feature group.
func (c *Client) SaveValidationReport(ctx context.Context, projectID, fsID, fgID int, report *ValidationReport) error {
	path := fmt.Sprintf("%s/%d/validationreport", fgRoot(projectID, fsID), fgID)
	return c.post(ctx, "save validation report", path, nil, report, nil)
}

// ListValidationReports returns past reports, newest first.
func (c *Client) ListValidationReports(ctx context.Context, projectID, fsID, fgID, limit int) ([]ValidationReport, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp itemsEnvelope[ValidationReport]
	path := fmt.Sprintf("%s/%d/validationreport", fgRoot(projectID, fsID), fgID)
	if err := c.get(ctx, "list validation reports", path, q, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ValidateRows evaluates a suite against in-memory rows. Expectation
// types without a local evaluator are reported as skipped successes.
func ValidateRows(suite *ExpectationSuite, rows []map[string]any) *ValidationReport {
	report := &ValidationReport{
		Success:        true,
		ValidationTime: time.Now().UTC().Format(time.RFC3339),
		RowsValidated:  len(rows),
	}
	for _, exp := range suite.Expectations {
		result := evaluateExpectation(exp, rows)
		if !result.Success {
			report.Success = false
		}
		report.Results = append(report.Results, result)
	}
	return report
}

func evaluateExpectation(exp Expectation, rows []map[string]any) ValidationResult {
	result := ValidationResult{ExpectationType: exp.ExpectationType, Column: exp.Column()}
	column := exp.Column()
	if column == "" {
		result.Message = "expectation has no column"
		return result
	}

	mostly := 1.0
	if m, ok := numericKwarg(exp.Kwargs, "mostly"); ok {
		mostly = m
	}

	var check func(any) bool
	switch exp.ExpectationType {
	case "expect_column_values_to_be_between":
		minV, hasMin := numericKwarg(exp.Kwargs, "min_value")
		maxV, hasMax := numericKwarg(exp.Kwargs, "max_value")
		check = func(v any) bool {
			n, ok := toFloat(v)
			if !ok {
				return false
			}
			if hasMin && n < minV {
				return false
			}
			if hasMax && n > maxV {
				return false
			}
			return true
		}
	case "expect_column_values_to_not_be_null":
		check = func(v any) bool { return v != nil }
	case "expect_column_values_to_be_in_set":
		set, _ := exp.Kwargs["value_set"].([]any)
		check = func(v any) bool {
			for _, allowed := range set {
				if equalValues(v, allowed) {
					return true
				}
			}
			return false
		}
	case "expect_column_values_to_match_regex":
		pattern, _ := exp.Kwargs["regex"].(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			result.Message = fmt.Sprintf("invalid regex %q: %v", pattern, err)
			return result
		}
		check = func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}
	case "expect_column_values_to_be_unique":
		seen := make(map[string]bool)
		passed, total := 0, 0
		for _, row := range rows {
			v, ok := row[column]
			if !ok || v == nil {
				continue
			}
			total++
			key := fmt.Sprint(v)
			if !seen[key] {
				seen[key] = true
				passed++
			}
		}
		return finishResult(result, passed, total, mostly)
	default:
		result.Success = true
		result.Message = fmt.Sprintf("expectation type %q has no local evaluator, skipped", exp.ExpectationType)
		return result
	}

	passed, total := 0, 0
	for _, row := range rows {
		v := row[column]
		total++
		if check(v) {
			passed++
		}
	}
	return finishResult(result, passed, total, mostly)
}

func finishResult(result ValidationResult, passed, total int, mostly float64) ValidationResult {
	fraction := 1.0
	if total > 0 {
		fraction = float64(passed) / float64(total)
	}
	result.Success = fraction >= mostly
	result.ObservedValue = fraction
	if !result.Success {
		result.Message = fmt.Sprintf("%d of %d values passed (required fraction %v)", passed, total, mostly)
	}
	return result
}

func numericKwarg(kwargs map[string]any, key string) (float64, bool) {
	v, ok := kwargs[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
