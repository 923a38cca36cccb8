// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
)

// ExternalFeatureGroup holds metadata about feature data living in an
// external storage system (Snowflake, Redshift, S3, ...).
type ExternalFeatureGroup struct {
	FeatureGroup
	DataFormat            string            `json:"dataFormat,omitempty"`
	Path                  string            `json:"path,omitempty"`
	Options               map[string]string `json:"options,omitempty"`
	TopicName             string            `json:"topicName,omitempty"`
	NotificationTopicName string            `json:"notificationTopicName,omitempty"`
	ForeignKey            []string          `json:"foreignKey,omitempty"`
}

// CreateExternalFeatureGroupRequest carries metadata for a new external
// feature group.
type CreateExternalFeatureGroupRequest struct {
	Name                  string            `json:"name"`
	Version               int               `json:"version,omitempty"`
	Description           string            `json:"description,omitempty"`
	StorageConnector      *Connector        `json:"storageConnector"`
	Query                 string            `json:"query,omitempty"`
	DataFormat            string            `json:"dataFormat,omitempty"`
	Path                  string            `json:"path,omitempty"`
	Options               map[string]string `json:"options,omitempty"`
	PrimaryKey            []string          `json:"primaryKey,omitempty"`
	ForeignKey            []string          `json:"foreignKey,omitempty"`
	EventTime             string            `json:"eventTime,omitempty"`
	OnlineEnabled         bool              `json:"onlineEnabled"`
	TopicName             string            `json:"topicName,omitempty"`
	NotificationTopicName string            `json:"notificationTopicName,omitempty"`
}

func extFgRoot(projectID, fsID int) string {
	return fmt.Sprintf("project/%d/featurestores/%d/externalfeaturegroups", projectID, fsID)
}

// GetStorageConnector resolves a storage connector by name.
func (c *Client) GetStorageConnector(ctx context.Context, projectID, fsID int, name string) (*Connector, error) {
	var out []Connector
	path := fmt.Sprintf("project/%d/featurestores/%d/storageconnectors", projectID, fsID)
	if err := c.get(ctx, "get storage connector", path, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Name == name {
			return &out[i], nil
		}
	}
	return nil, NewError(KindNotFound, "get storage connector", "storage connector %q not found", name)
}

// CreateExternalFeatureGroup registers an external feature group.
func (c *Client) CreateExternalFeatureGroup(ctx context.Context, projectID, fsID int, req CreateExternalFeatureGroupRequest) (*ExternalFeatureGroup, error) {
	var out ExternalFeatureGroup
	if err := c.post(ctx, "create external feature group", extFgRoot(projectID, fsID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetExternalFeatureGroup fetches an external feature group by name and version.
func (c *Client) GetExternalFeatureGroup(ctx context.Context, projectID, fsID int, name string, version int) (*ExternalFeatureGroup, error) {
	var out []ExternalFeatureGroup
	path := extFgRoot(projectID, fsID) + "/" + name
	if err := c.get(ctx, "get external feature group", path, versionQuery(version), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, NewError(KindNotFound, "get external feature group", "external feature group %s (version %d) not found", name, version)
	}
	return &out[0], nil
}

// ListExternalFeatureGroups returns all external feature groups in the store.
func (c *Client) ListExternalFeatureGroups(ctx context.Context, projectID, fsID int) ([]ExternalFeatureGroup, error) {
	var out []ExternalFeatureGroup
	if err := c.get(ctx, "list external feature groups", extFgRoot(projectID, fsID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExternalFeatureGroup removes an external feature group.
func (c *Client) DeleteExternalFeatureGroup(ctx context.Context, projectID, fsID, fgID int) error {
	path := fmt.Sprintf("%s/%d", extFgRoot(projectID, fsID), fgID)
	return c.delete(ctx, "delete external feature group", path, nil)
}

// UpdateExternalFeatureGroupDescription replaces the description.
func (c *Client) UpdateExternalFeatureGroupDescription(ctx context.Context, projectID, fsID, fgID int, description string) (*ExternalFeatureGroup, error) {
	var out ExternalFeatureGroup
	path := fmt.Sprintf("%s/%d", extFgRoot(projectID, fsID), fgID)
	body := map[string]any{"description": description}
	if err := c.put(ctx, "update external feature group description", path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertExternalIntoOnlineStore mirrors rows of an external feature group
// into the online store for low-latency serving.
func (c *Client) InsertExternalIntoOnlineStore(ctx context.Context, projectID, fsID, fgID int, rows []map[string]any) error {
	path := fmt.Sprintf("%s/%d/ingestion", extFgRoot(projectID, fsID), fgID)
	body := map[string]any{"rows": rows, "storage": "online"}
	return c.post(ctx, "insert into online store", path, nil, body, nil)
}
