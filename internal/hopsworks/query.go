// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryJoin joins another feature group into a query plan.
type QueryJoin struct {
	FeatureGroup *FeatureGroup `json:"featureGroup"`
	On           []string      `json:"on"`
	JoinType     string        `json:"type,omitempty"`   // inner, left, right, full
	Prefix       string        `json:"prefix,omitempty"` // column prefix for the joined side
}

// QueryFilter is one predicate of a query plan. Operator is one of
// ==, >, <, >=, <=, like.
type QueryFilter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// QueryPlan is a typed, serializable feature store query: a base feature
// group with optional selected columns, joins, filters and a time travel
// point. It renders to SQL against the offline or online store.
type QueryPlan struct {
	Base          *FeatureGroup `json:"leftFeatureGroup"`
	SelectedNames []string      `json:"leftFeatures,omitempty"` // empty = all columns
	Joins         []QueryJoin   `json:"joins,omitempty"`
	Filters       []QueryFilter `json:"filters,omitempty"`
	WallclockTime string        `json:"asOfTimestamp,omitempty"`
}

// NewQueryPlan starts a plan selecting all columns of the base group.
func NewQueryPlan(base *FeatureGroup) *QueryPlan {
	return &QueryPlan{Base: base}
}

// Select restricts the base columns. Unknown columns are an error.
func (q *QueryPlan) Select(names []string) error {
	for _, n := range names {
		if !q.Base.HasColumn(n) {
			return NewError(KindInvalidArgument, "query", "column %q not found in feature group %q", n, q.Base.Name)
		}
	}
	q.SelectedNames = names
	return nil
}

// Join adds a feature group on the given key columns. Empty join type
// defaults to inner.
func (q *QueryPlan) Join(fg *FeatureGroup, on []string, joinType, prefix string) error {
	switch joinType {
	case "", "inner", "left", "right", "full":
	default:
		return NewError(KindInvalidArgument, "query", "unsupported join type %q", joinType)
	}
	if len(on) == 0 {
		return NewError(KindInvalidArgument, "query", "join requires at least one key column")
	}
	for _, key := range on {
		if !q.Base.HasColumn(key) && !q.joinedColumn(key) {
			return NewError(KindInvalidArgument, "query", "join key %q not found on the left side of the join", key)
		}
		if !fg.HasColumn(key) {
			return NewError(KindInvalidArgument, "query", "join key %q not found in feature group %q", key, fg.Name)
		}
	}
	q.Joins = append(q.Joins, QueryJoin{FeatureGroup: fg, On: on, JoinType: joinType, Prefix: prefix})
	return nil
}

func (q *QueryPlan) joinedColumn(name string) bool {
	for _, j := range q.Joins {
		if j.FeatureGroup.HasColumn(name) {
			return true
		}
	}
	return false
}

// Filter appends a predicate. The column must resolve against the plan
// schema.
func (q *QueryPlan) Filter(column, operator string, value any) error {
	if !q.HasColumn(column) {
		return NewError(KindInvalidArgument, "query", "filter column %q not found in the query schema", column)
	}
	q.Filters = append(q.Filters, QueryFilter{Column: column, Operator: operator, Value: value})
	return nil
}

// AsOf sets the time travel point for the base feature group.
func (q *QueryPlan) AsOf(wallclockTime string) {
	q.WallclockTime = wallclockTime
}

// HasColumn resolves a column against the base group and all joins,
// accounting for join prefixes.
func (q *QueryPlan) HasColumn(name string) bool {
	if q.Base.HasColumn(name) {
		return true
	}
	for _, j := range q.Joins {
		if j.Prefix != "" {
			if strings.HasPrefix(name, j.Prefix) && j.FeatureGroup.HasColumn(strings.TrimPrefix(name, j.Prefix)) {
				return true
			}
			continue
		}
		if j.FeatureGroup.HasColumn(name) {
			return true
		}
	}
	return false
}

// Schema returns the merged output schema of the plan.
func (q *QueryPlan) Schema() []Feature {
	var out []Feature
	if len(q.SelectedNames) > 0 {
		for _, name := range q.SelectedNames {
			for _, f := range q.Base.Features {
				if strings.EqualFold(f.Name, name) {
					out = append(out, f)
					break
				}
			}
		}
	} else {
		out = append(out, q.Base.Features...)
	}
	for _, j := range q.Joins {
		for _, f := range j.FeatureGroup.Features {
			jf := f
			jf.Name = j.Prefix + f.Name
			out = append(out, jf)
		}
	}
	return out
}

// SQL renders the plan for the named feature store. online selects the
// online store table namespace.
func (q *QueryPlan) SQL(offlineStoreName, onlineStoreName string, online bool) (string, error) {
	if q.Base == nil {
		return "", NewError(KindInvalidArgument, "query", "query plan has no base feature group")
	}
	if online && q.WallclockTime != "" {
		return "", NewError(KindInvalidArgument, "query", "time travel is not available on the online store")
	}

	store := offlineStoreName
	if online {
		store = onlineStoreName
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.selectClause())
	fmt.Fprintf(&b, " FROM %s `fg0`", tableRef(store, q.Base))
	for i, j := range q.Joins {
		jt := strings.ToUpper(j.JoinType)
		if jt == "" {
			jt = "INNER"
		}
		fmt.Fprintf(&b, " %s JOIN %s `fg%d` ON ", jt, tableRef(store, j.FeatureGroup), i+1)
		for k, key := range j.On {
			if k > 0 {
				b.WriteString(" AND ")
			}
			fmt.Fprintf(&b, "`fg0`.`%s` = `fg%d`.`%s`", key, i+1, key)
		}
	}
	if len(q.Filters) > 0 {
		b.WriteString(" WHERE ")
		for i, f := range q.Filters {
			if i > 0 {
				b.WriteString(" AND ")
			}
			clause, err := filterSQL(f)
			if err != nil {
				return "", err
			}
			b.WriteString(clause)
		}
	}
	return b.String(), nil
}

func (q *QueryPlan) selectClause() string {
	var cols []string
	if len(q.SelectedNames) > 0 {
		for _, name := range q.SelectedNames {
			cols = append(cols, fmt.Sprintf("`fg0`.`%s`", name))
		}
	} else {
		cols = append(cols, "`fg0`.*")
	}
	for i, j := range q.Joins {
		if j.Prefix == "" {
			cols = append(cols, fmt.Sprintf("`fg%d`.*", i+1))
			continue
		}
		for _, f := range j.FeatureGroup.Features {
			cols = append(cols, fmt.Sprintf("`fg%d`.`%s` AS `%s%s`", i+1, f.Name, j.Prefix, f.Name))
		}
	}
	return strings.Join(cols, ", ")
}

func tableRef(store string, fg *FeatureGroup) string {
	return fmt.Sprintf("`%s`.`%s_%d`", store, fg.Name, fg.Version)
}

func filterSQL(f QueryFilter) (string, error) {
	col := fmt.Sprintf("`%s`", f.Column)
	switch f.Operator {
	case "==":
		return fmt.Sprintf("%s = %s", col, sqlLiteral(f.Value)), nil
	case ">", "<", ">=", "<=":
		return fmt.Sprintf("%s %s %s", col, f.Operator, sqlLiteral(f.Value)), nil
	case "like":
		s, ok := f.Value.(string)
		if !ok {
			return "", NewError(KindInvalidArgument, "query", "like filter requires a string value")
		}
		return fmt.Sprintf("%s LIKE %s", col, sqlLiteral("%"+s+"%")), nil
	default:
		return "", NewError(KindInvalidArgument, "query", "unsupported filter operator %q", f.Operator)
	}
}

// sqlLiteral encodes a Go value as a SQL literal. Strings are single
// quoted with embedded quotes doubled.
func sqlLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(val), "'", "''") + "'"
	}
}
