// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
)

func (r *Registry) registerSecretTools() {
	r.write(tool("create_secret",
		"Store a new secret, optionally shared with a project.",
		schema(map[string]any{
			"name":    stringProp("Secret name"),
			"value":   stringProp("Secret value"),
			"project": stringProp("Project to share the secret with, private when omitted"),
		}, "name", "value")),
		r.handleCreateSecret)

	r.read(tool("get_secret_value",
		"Get the value of a secret.",
		schema(map[string]any{
			"name":  stringProp("Secret name"),
			"owner": stringProp("Owner email when reading a secret shared by another user"),
		}, "name")),
		r.handleGetSecretValue)

	r.read(tool("get_secret",
		"Get the metadata of a secret without its value.",
		schema(map[string]any{
			"name":  stringProp("Secret name"),
			"owner": stringProp("Owner email when reading a secret shared by another user"),
		}, "name")),
		r.handleGetSecret)

	r.read(tool("list_secrets",
		"List the metadata of all accessible secrets.",
		noArgs()),
		r.handleListSecrets)

	r.destructive(tool("delete_secret",
		"Delete an owned secret. Applications using the secret will lose access to it.",
		schema(map[string]any{
			"name": stringProp("Secret to delete"),
		}, "name")),
		r.handleDeleteSecret)
}

type secretArgs struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Project string `json:"project"`
	Owner   string `json:"owner"`
}

func (r *Registry) handleCreateSecret(ctx context.Context, args json.RawMessage) (any, error) {
	var a secretArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	secret, err := session.Client().CreateSecret(ctx, a.Name, a.Value, a.Project)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":     "created",
		"name":       secret.Name,
		"scope":      secret.Scope,
		"visibility": secret.Visibility,
	}, nil
}

func (r *Registry) handleGetSecretValue(ctx context.Context, args json.RawMessage) (any, error) {
	var a secretArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	value, err := session.Client().GetSecretValue(ctx, a.Name, a.Owner)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "name": a.Name, "value": value}, nil
}

func (r *Registry) handleGetSecret(ctx context.Context, args json.RawMessage) (any, error) {
	var a secretArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	secret, err := session.Client().GetSecret(ctx, a.Name, a.Owner)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":     "ok",
		"name":       secret.Name,
		"owner":      secret.Owner,
		"created":    secret.Created,
		"scope":      secret.Scope,
		"visibility": secret.Visibility,
	}, nil
}

func (r *Registry) handleListSecrets(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	secrets, err := session.Client().ListSecrets(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]map[string]any, 0, len(secrets))
	for _, s := range secrets {
		summaries = append(summaries, map[string]any{
			"name":       s.Name,
			"owner":      s.Owner,
			"created":    s.Created,
			"scope":      s.Scope,
			"visibility": s.Visibility,
		})
	}
	return map[string]any{"status": "ok", "count": len(summaries), "secrets": summaries}, nil
}

func (r *Registry) handleDeleteSecret(ctx context.Context, args json.RawMessage) (any, error) {
	var a secretArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteSecret(ctx, a.Name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": a.Name}, nil
}
