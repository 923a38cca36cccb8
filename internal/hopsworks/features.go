// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// FeatureMatch is one hit of a feature search across the feature
// groups of a store.
type FeatureMatch struct {
	FeatureName         string `json:"featureName"`
	FeatureType         string `json:"featureType,omitempty"`
	FeatureDescription  string `json:"featureDescription,omitempty"`
	FeatureGroupName    string `json:"featureGroupName"`
	FeatureGroupVersion int    `json:"featureGroupVersion"`
	Primary             bool   `json:"primary"`
	Partition           bool   `json:"partition"`
}

// SearchFeatures finds features whose name matches a SQL LIKE pattern
// ('%' any run, '_' any character; matching is case-insensitive)
// across every feature group of the store.
func (c *Client) SearchFeatures(ctx context.Context, projectID, fsID int, pattern string) ([]FeatureMatch, error) {
	const op = "search features"
	if pattern == "" {
		return nil, NewError(KindInvalidArgument, op, "search pattern is required")
	}
	re, err := likePattern(pattern)
	if err != nil {
		return nil, NewError(KindInvalidArgument, op, "invalid pattern %q", pattern)
	}
	groups, err := c.ListFeatureGroups(ctx, projectID, fsID)
	if err != nil {
		return nil, err
	}

	var matches []FeatureMatch
	for _, fg := range groups {
		for _, f := range fg.Features {
			if !re.MatchString(strings.ToLower(f.Name)) {
				continue
			}
			matches = append(matches, FeatureMatch{
				FeatureName:         f.Name,
				FeatureType:         f.Type,
				FeatureDescription:  f.Description,
				FeatureGroupName:    fg.Name,
				FeatureGroupVersion: fg.Version,
				Primary:             f.Primary,
				Partition:           f.Partition,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.FeatureGroupName != b.FeatureGroupName {
			return a.FeatureGroupName < b.FeatureGroupName
		}
		if a.FeatureGroupVersion != b.FeatureGroupVersion {
			return a.FeatureGroupVersion < b.FeatureGroupVersion
		}
		return a.FeatureName < b.FeatureName
	})
	return matches, nil
}

// likePattern compiles a SQL LIKE pattern into an anchored regexp.
func likePattern(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range strings.ToLower(pattern) {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
