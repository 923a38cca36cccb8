// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package udf

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
)

// FeatureStatistics holds the descriptive statistics of one feature,
// exposed to transformations that declare a "statistics" parameter.
type FeatureStatistics struct {
	Min    float64
	Max    float64
	Mean   float64
	Stddev float64
	Count  int64
}

// TransformationStatistics maps feature names to their statistics.
type TransformationStatistics map[string]FeatureStatistics

func (ts TransformationStatistics) value() starlark.Value {
	return statisticsValue{stats: ts}
}

// statisticsValue exposes statistics to Starlark as an object with one
// attribute per feature, each carrying min/max/mean/stddev/count.
type statisticsValue struct {
	stats TransformationStatistics
}

var (
	_ starlark.Value    = statisticsValue{}
	_ starlark.HasAttrs = statisticsValue{}
)

func (s statisticsValue) String() string        { return "transformation_statistics" }
func (s statisticsValue) Type() string          { return "transformation_statistics" }
func (s statisticsValue) Freeze()               {}
func (s statisticsValue) Truth() starlark.Bool  { return len(s.stats) > 0 }
func (s statisticsValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", s.Type()) }

func (s statisticsValue) Attr(name string) (starlark.Value, error) {
	fs, ok := s.stats[name]
	if !ok {
		return nil, nil
	}
	return featureStatisticsValue{name: name, stats: fs}, nil
}

func (s statisticsValue) AttrNames() []string {
	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type featureStatisticsValue struct {
	name  string
	stats FeatureStatistics
}

var (
	_ starlark.Value    = featureStatisticsValue{}
	_ starlark.HasAttrs = featureStatisticsValue{}
)

func (f featureStatisticsValue) String() string        { return "feature_statistics(" + f.name + ")" }
func (f featureStatisticsValue) Type() string          { return "feature_statistics" }
func (f featureStatisticsValue) Freeze()               {}
func (f featureStatisticsValue) Truth() starlark.Bool  { return starlark.True }
func (f featureStatisticsValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", f.Type()) }

func (f featureStatisticsValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "min":
		return starlark.Float(f.stats.Min), nil
	case "max":
		return starlark.Float(f.stats.Max), nil
	case "mean":
		return starlark.Float(f.stats.Mean), nil
	case "stddev":
		return starlark.Float(f.stats.Stddev), nil
	case "count":
		return starlark.MakeInt64(f.stats.Count), nil
	default:
		return nil, nil
	}
}

func (f featureStatisticsValue) AttrNames() []string {
	return []string{"count", "max", "mean", "min", "stddev"}
}
