// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerKafkaTools() {
	r.read(tool("get_kafka_api",
		"Connect to the current project's Kafka API.",
		noArgs()),
		r.handleGetKafkaAPI)

	r.read(tool("get_default_config",
		"Get the broker connection configuration for Kafka clients of the project.",
		schema(map[string]any{
			"internal_kafka": boolProp("Use the in-cluster broker listeners"),
		})),
		r.handleKafkaDefaultConfig)

	r.write(tool("create_schema",
		"Register a new Avro schema version under a subject.",
		schema(map[string]any{
			"subject": stringProp("Schema subject"),
			"schema":  objectProp("Avro schema document"),
		}, "subject", "schema")),
		r.handleCreateKafkaSchema)

	r.read(tool("get_schema",
		"Get one Avro schema version of a subject.",
		schema(map[string]any{
			"subject": stringProp("Schema subject"),
			"version": numberProp("Schema version"),
		}, "subject", "version")),
		r.handleGetKafkaSchema)

	r.read(tool("get_schemas",
		"List all schema versions of a subject.",
		schema(map[string]any{
			"subject": stringProp("Schema subject"),
		}, "subject")),
		r.handleGetKafkaSchemas)

	r.read(tool("get_subjects",
		"List all Kafka schema subjects of the project.",
		noArgs()),
		r.handleGetKafkaSubjects)

	r.destructive(tool("delete_schema",
		"Delete one Avro schema version of a subject.",
		schema(map[string]any{
			"subject": stringProp("Schema subject"),
			"version": numberProp("Schema version to delete"),
		}, "subject", "version")),
		r.handleDeleteKafkaSchema)

	r.write(tool("create_topic",
		"Create a Kafka topic bound to a registered schema.",
		schema(map[string]any{
			"name":           stringProp("Topic name"),
			"schema":         stringProp("Schema subject the topic uses"),
			"schema_version": numberProp("Schema version the topic uses"),
			"replicas":       numberProp("Replication factor, default 1"),
			"partitions":     numberProp("Partition count, default 1"),
		}, "name", "schema", "schema_version")),
		r.handleCreateKafkaTopic)

	r.read(tool("get_topic",
		"Get a Kafka topic of the project by name.",
		schema(map[string]any{
			"name": stringProp("Topic name"),
		}, "name")),
		r.handleGetKafkaTopic)

	r.read(tool("get_topics",
		"List the Kafka topics of the project.",
		noArgs()),
		r.handleGetKafkaTopics)

	r.destructive(tool("delete_topic",
		"Delete a Kafka topic of the project.",
		schema(map[string]any{
			"name": stringProp("Topic to delete"),
		}, "name")),
		r.handleDeleteKafkaTopic)
}

func (r *Registry) handleGetKafkaAPI(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	topics, err := session.Client().ListKafkaTopics(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"connected": true,
		"project":   session.Project().Name,
		"topics":    len(topics),
	}, nil
}

type kafkaConfigArgs struct {
	InternalKafka bool `json:"internal_kafka"`
}

func (r *Registry) handleKafkaDefaultConfig(ctx context.Context, args json.RawMessage) (any, error) {
	var a kafkaConfigArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	config, err := session.Client().KafkaDefaultConfig(ctx, session.Project().ID, a.InternalKafka)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "internal_kafka": a.InternalKafka, "config": config}, nil
}

type kafkaSchemaArgs struct {
	Subject string          `json:"subject"`
	Version int             `json:"version"`
	Schema  json.RawMessage `json:"schema"`
}

func (r *Registry) handleCreateKafkaSchema(ctx context.Context, args json.RawMessage) (any, error) {
	var a kafkaSchemaArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	created, err := session.Client().CreateKafkaSchema(ctx, session.Project().ID, a.Subject, a.Schema)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "created",
		"subject": created.Subject,
		"version": created.Version,
		"id":      created.ID,
	}, nil
}

func (r *Registry) handleGetKafkaSchema(ctx context.Context, args json.RawMessage) (any, error) {
	var a kafkaSchemaArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	schema, err := session.Client().GetKafkaSchema(ctx, session.Project().ID, a.Subject, a.Version)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "schema": schema}, nil
}

func (r *Registry) handleGetKafkaSchemas(ctx context.Context, args json.RawMessage) (any, error) {
	var a kafkaSchemaArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	schemas, err := session.Client().ListKafkaSchemas(ctx, session.Project().ID, a.Subject)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "subject": a.Subject, "count": len(schemas), "schemas": schemas}, nil
}

func (r *Registry) handleGetKafkaSubjects(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	subjects, err := session.Client().ListKafkaSubjects(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(subjects), "subjects": subjects}, nil
}

func (r *Registry) handleDeleteKafkaSchema(ctx context.Context, args json.RawMessage) (any, error) {
	var a kafkaSchemaArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteKafkaSchema(ctx, session.Project().ID, a.Subject, a.Version); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "subject": a.Subject, "version": a.Version}, nil
}

type createTopicArgs struct {
	Name          string `json:"name"`
	Schema        string `json:"schema"`
	SchemaVersion int    `json:"schema_version"`
	Replicas      int    `json:"replicas"`
	Partitions    int    `json:"partitions"`
}

func (r *Registry) handleCreateKafkaTopic(ctx context.Context, args json.RawMessage) (any, error) {
	var a createTopicArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	replicas := a.Replicas
	if replicas <= 0 {
		replicas = 1
	}
	partitions := a.Partitions
	if partitions <= 0 {
		partitions = 1
	}
	topic, err := session.Client().CreateKafkaTopic(ctx, session.Project().ID, hopsworks.KafkaTopic{
		Name:          a.Name,
		NumPartitions: partitions,
		NumReplicas:   replicas,
		SchemaName:    a.Schema,
		SchemaVersion: a.SchemaVersion,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "topic": topic}, nil
}

type topicRef struct {
	Name string `json:"name"`
}

func (r *Registry) handleGetKafkaTopic(ctx context.Context, args json.RawMessage) (any, error) {
	var a topicRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	topic, err := session.Client().GetKafkaTopic(ctx, session.Project().ID, a.Name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "topic": topic}, nil
}

func (r *Registry) handleGetKafkaTopics(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	topics, err := session.Client().ListKafkaTopics(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(topics), "topics": topics}, nil
}

func (r *Registry) handleDeleteKafkaTopic(ctx context.Context, args json.RawMessage) (any, error) {
	var a topicRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteKafkaTopic(ctx, session.Project().ID, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": a.Name}, nil
}
