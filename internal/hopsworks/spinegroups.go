// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// SpineGroup is a feature-group-like metadata object whose rows are
// supplied by the caller instead of being materialized in the feature
// store. It carries just enough schema (primary key, event time) to
// drive point-in-time correct joins.
type SpineGroup struct {
	Name        string           `json:"name"`
	Version     int              `json:"version"`
	Description string           `json:"description,omitempty"`
	PrimaryKey  []string         `json:"primaryKey"`
	EventTime   string           `json:"eventTime,omitempty"`
	Features    []Feature        `json:"features"`
	Rows        []map[string]any `json:"-"`
}

// HasColumn reports whether the spine group schema contains the column.
func (sg *SpineGroup) HasColumn(name string) bool {
	for _, f := range sg.Features {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// FeatureNames returns the schema column names in declaration order.
func (sg *SpineGroup) FeatureNames() []string {
	names := make([]string, len(sg.Features))
	for i, f := range sg.Features {
		names[i] = f.Name
	}
	return names
}

// SpineGroupStore keeps spine groups in memory for the lifetime of a
// session, keyed by name and version. Spine data never leaves the
// server process.
type SpineGroupStore struct {
	mu     sync.RWMutex
	groups map[string]*SpineGroup
}

// NewSpineGroupStore creates an empty store.
func NewSpineGroupStore() *SpineGroupStore {
	return &SpineGroupStore{groups: make(map[string]*SpineGroup)}
}

func spineKey(name string, version int) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(name), version)
}

// GetOrCreateSpineGroupParams describe a spine group to create. Rows is
// the caller-supplied data in record orientation.
type GetOrCreateSpineGroupParams struct {
	Name        string
	Version     int // 0 = next version after the latest existing one
	Description string
	PrimaryKey  []string
	EventTime   string
	Rows        []map[string]any
}

// GetOrCreate returns the existing spine group at (name, version) or
// creates it from the supplied rows. When no version is given, creation
// uses one past the highest existing version.
func (s *SpineGroupStore) GetOrCreate(params GetOrCreateSpineGroupParams) (*SpineGroup, error) {
	if params.Name == "" {
		return nil, NewError(KindInvalidArgument, "spine group", "name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := params.Version
	if version == 0 {
		version = s.latestVersionLocked(params.Name) + 1
	} else if sg, ok := s.groups[spineKey(params.Name, version)]; ok {
		return sg, nil
	}

	if len(params.Rows) == 0 {
		return nil, NewError(KindInvalidArgument, "spine group", "spine group %q v%d does not exist and no data was provided", params.Name, version)
	}
	if len(params.PrimaryKey) == 0 {
		return nil, NewError(KindInvalidArgument, "spine group", "primary key is required to create a spine group")
	}

	features := inferSpineSchema(params.Rows)
	for _, pk := range params.PrimaryKey {
		if !columnPresent(features, pk) {
			return nil, NewError(KindInvalidArgument, "spine group", "primary key column %q not present in data", pk)
		}
	}
	if params.EventTime != "" && !columnPresent(features, params.EventTime) {
		return nil, NewError(KindInvalidArgument, "spine group", "event time column %q not present in data", params.EventTime)
	}

	sg := &SpineGroup{
		Name:        params.Name,
		Version:     version,
		Description: params.Description,
		PrimaryKey:  params.PrimaryKey,
		EventTime:   params.EventTime,
		Features:    features,
		Rows:        params.Rows,
	}
	s.groups[spineKey(params.Name, version)] = sg
	return sg, nil
}

// Get returns the spine group at (name, version).
func (s *SpineGroupStore) Get(name string, version int) (*SpineGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.groups[spineKey(name, version)]
	if !ok {
		return nil, NewError(KindNotFound, "spine group", "spine group %q v%d not found", name, version)
	}
	return sg, nil
}

// UpdateData replaces the rows of an existing spine group. The schema is
// re-inferred and must still contain the primary key columns.
func (s *SpineGroupStore) UpdateData(name string, version int, rows []map[string]any) (*SpineGroup, error) {
	if len(rows) == 0 {
		return nil, NewError(KindInvalidArgument, "spine group", "data must contain at least one row")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.groups[spineKey(name, version)]
	if !ok {
		return nil, NewError(KindNotFound, "spine group", "spine group %q v%d not found", name, version)
	}

	features := inferSpineSchema(rows)
	for _, pk := range sg.PrimaryKey {
		if !columnPresent(features, pk) {
			return nil, NewError(KindInvalidArgument, "spine group", "new data is missing primary key column %q", pk)
		}
	}

	sg.Rows = rows
	sg.Features = features
	return sg, nil
}

// Delete removes the spine group at (name, version).
func (s *SpineGroupStore) Delete(name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := spineKey(name, version)
	if _, ok := s.groups[key]; !ok {
		return NewError(KindNotFound, "spine group", "spine group %q v%d not found", name, version)
	}
	delete(s.groups, key)
	return nil
}

func (s *SpineGroupStore) latestVersionLocked(name string) int {
	latest := 0
	prefix := strings.ToLower(name) + "_"
	for key, sg := range s.groups {
		if strings.HasPrefix(key, prefix) && sg.Version > latest {
			latest = sg.Version
		}
	}
	return latest
}

// ParseSpineRows decodes record-oriented JSON into spine rows. Accepts
// either an array of objects or a single object.
func ParseSpineRows(data string) ([]map[string]any, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, NewError(KindInvalidArgument, "spine group", "data must be a non-empty JSON document")
	}

	var rows []map[string]any
	if strings.HasPrefix(data, "{") {
		var row map[string]any
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, NewError(KindInvalidArgument, "spine group", "invalid JSON data: %v", err)
		}
		rows = []map[string]any{row}
	} else if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return nil, NewError(KindInvalidArgument, "spine group", "invalid JSON data: expected an array of objects: %v", err)
	}
	return rows, nil
}

// inferSpineSchema derives a column schema from row values. Column order
// is alphabetical so the schema is stable across map iteration.
func inferSpineSchema(rows []map[string]any) []Feature {
	types := make(map[string]string)
	for _, row := range rows {
		for name, value := range row {
			t := spineValueType(value)
			prev, seen := types[name]
			switch {
			case !seen || prev == "":
				types[name] = t
			case prev != t && t != "":
				types[name] = "string"
			}
		}
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	features := make([]Feature, len(names))
	for i, name := range names {
		t := types[name]
		if t == "" {
			t = "string"
		}
		features[i] = Feature{Name: name, Type: t}
	}
	return features
}

func spineValueType(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		return "boolean"
	case float64:
		if v == math.Trunc(v) {
			return "bigint"
		}
		return "double"
	case string:
		return "string"
	default:
		return "string"
	}
}

func columnPresent(features []Feature, name string) bool {
	for _, f := range features {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}
