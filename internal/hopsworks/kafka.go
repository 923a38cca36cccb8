// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// KafkaSchema is one version of an Avro schema registered under a
// subject.
type KafkaSchema struct {
	ID      int             `json:"id,omitempty"`
	Subject string          `json:"subject"`
	Version int             `json:"version"`
	Schema  json.RawMessage `json:"schema,omitempty"`
}

// KafkaTopic is a project Kafka topic.
type KafkaTopic struct {
	Name          string `json:"name"`
	NumPartitions int    `json:"numOfPartitions,omitempty"`
	NumReplicas   int    `json:"numOfReplicas,omitempty"`
	SchemaName    string `json:"schemaName,omitempty"`
	SchemaVersion int    `json:"schemaVersion,omitempty"`
	Shared        bool   `json:"isShared,omitempty"`
}

func kafkaRoot(projectID int) string {
	return fmt.Sprintf("project/%d/kafka", projectID)
}

// KafkaDefaultConfig returns broker connection settings for project
// clients. internalKafka selects the in-cluster listener endpoints.
func (c *Client) KafkaDefaultConfig(ctx context.Context, projectID int, internalKafka bool) (map[string]any, error) {
	q := url.Values{}
	q.Set("external", strconv.FormatBool(!internalKafka))
	var config map[string]any
	if err := c.get(ctx, "get kafka config", kafkaRoot(projectID)+"/clusterinfo", q, &config); err != nil {
		return nil, err
	}
	return config, nil
}

// CreateKafkaSchema registers a new schema version under a subject.
func (c *Client) CreateKafkaSchema(ctx context.Context, projectID int, subject string, schema json.RawMessage) (*KafkaSchema, error) {
	const op = "create kafka schema"
	if subject == "" {
		return nil, NewError(KindInvalidArgument, op, "subject is required")
	}
	if len(schema) == 0 {
		return nil, NewError(KindInvalidArgument, op, "schema definition is required")
	}
	body := map[string]any{"schema": string(schema)}
	var created KafkaSchema
	path := fmt.Sprintf("%s/subjects/%s/versions", kafkaRoot(projectID), url.PathEscape(subject))
	if err := c.post(ctx, op, path, nil, body, &created); err != nil {
		return nil, err
	}
	created.Subject = subject
	if created.Schema == nil {
		created.Schema = schema
	}
	return &created, nil
}

// GetKafkaSchema returns one schema version of a subject.
func (c *Client) GetKafkaSchema(ctx context.Context, projectID int, subject string, version int) (*KafkaSchema, error) {
	var schema KafkaSchema
	path := fmt.Sprintf("%s/subjects/%s/versions/%d", kafkaRoot(projectID), url.PathEscape(subject), version)
	if err := c.get(ctx, "get kafka schema", path, nil, &schema); err != nil {
		return nil, err
	}
	if schema.Subject == "" {
		schema.Subject = subject
	}
	if schema.Version == 0 {
		schema.Version = version
	}
	return &schema, nil
}

// ListKafkaSchemas returns all versions registered under a subject.
func (c *Client) ListKafkaSchemas(ctx context.Context, projectID int, subject string) ([]KafkaSchema, error) {
	var versions []int
	path := fmt.Sprintf("%s/subjects/%s/versions", kafkaRoot(projectID), url.PathEscape(subject))
	if err := c.get(ctx, "list kafka schemas", path, nil, &versions); err != nil {
		return nil, err
	}
	schemas := make([]KafkaSchema, 0, len(versions))
	for _, v := range versions {
		schema, err := c.GetKafkaSchema(ctx, projectID, subject, v)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *schema)
	}
	return schemas, nil
}

// ListKafkaSubjects returns all schema subjects of the project.
func (c *Client) ListKafkaSubjects(ctx context.Context, projectID int) ([]string, error) {
	var subjects []string
	if err := c.get(ctx, "list kafka subjects", kafkaRoot(projectID)+"/subjects", nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// DeleteKafkaSchema removes one schema version of a subject.
func (c *Client) DeleteKafkaSchema(ctx context.Context, projectID int, subject string, version int) error {
	path := fmt.Sprintf("%s/subjects/%s/versions/%d", kafkaRoot(projectID), url.PathEscape(subject), version)
	return c.delete(ctx, "delete kafka schema", path, nil)
}

// CreateKafkaTopic creates a topic bound to a registered schema.
func (c *Client) CreateKafkaTopic(ctx context.Context, projectID int, topic KafkaTopic) (*KafkaTopic, error) {
	const op = "create kafka topic"
	if topic.Name == "" {
		return nil, NewError(KindInvalidArgument, op, "topic name is required")
	}
	if topic.NumPartitions <= 0 {
		topic.NumPartitions = 1
	}
	if topic.NumReplicas <= 0 {
		topic.NumReplicas = 1
	}
	var created KafkaTopic
	if err := c.post(ctx, op, kafkaRoot(projectID)+"/topics", nil, topic, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		created = topic
	}
	return &created, nil
}

// GetKafkaTopic returns one topic by name.
func (c *Client) GetKafkaTopic(ctx context.Context, projectID int, name string) (*KafkaTopic, error) {
	const op = "get kafka topic"
	topics, err := c.ListKafkaTopics(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range topics {
		if topics[i].Name == name {
			return &topics[i], nil
		}
	}
	return nil, NewError(KindNotFound, op, "kafka topic %q not found", name)
}

// ListKafkaTopics returns all project topics.
func (c *Client) ListKafkaTopics(ctx context.Context, projectID int) ([]KafkaTopic, error) {
	var resp itemsEnvelope[KafkaTopic]
	if err := c.get(ctx, "list kafka topics", kafkaRoot(projectID)+"/topics", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// DeleteKafkaTopic removes a topic.
func (c *Client) DeleteKafkaTopic(ctx context.Context, projectID int, name string) error {
	return c.delete(ctx, "delete kafka topic", kafkaRoot(projectID)+"/topics/"+url.PathEscape(name), nil)
}
