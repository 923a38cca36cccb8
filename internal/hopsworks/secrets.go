// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"net/url"
)

// Secret is a user-owned secret, optionally shared with a project.
// Value is only populated by the value-returning calls.
type Secret struct {
	Name       string `json:"name"`
	Owner      string `json:"owner,omitempty"`
	Created    string `json:"addedOn,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	Value      string `json:"secret,omitempty"`
}

const secretsRoot = "users/secrets"

// CreateSecret stores a new secret. When project is non-empty the
// secret is shared with that project, otherwise it stays private.
func (c *Client) CreateSecret(ctx context.Context, name, value, project string) (*Secret, error) {
	const op = "create secret"
	if name == "" || value == "" {
		return nil, NewError(KindInvalidArgument, op, "secret name and value are required")
	}
	body := map[string]any{
		"name":   name,
		"secret": value,
	}
	if project != "" {
		body["visibility"] = "PROJECT"
		body["scope"] = project
	} else {
		body["visibility"] = "PRIVATE"
	}
	if err := c.post(ctx, op, secretsRoot, nil, body, nil); err != nil {
		return nil, err
	}
	return c.GetSecret(ctx, name, "")
}

// ListSecrets returns the secrets visible to the caller, without
// values.
func (c *Client) ListSecrets(ctx context.Context) ([]Secret, error) {
	var resp itemsEnvelope[Secret]
	if err := c.get(ctx, "list secrets", secretsRoot, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Items {
		resp.Items[i].Value = ""
	}
	return resp.Items, nil
}

// GetSecret returns secret metadata without the value. owner selects a
// secret another user shared with the current project.
func (c *Client) GetSecret(ctx context.Context, name, owner string) (*Secret, error) {
	const op = "get secret"
	if owner != "" {
		secret, err := c.getSharedSecret(ctx, op, name, owner)
		if err != nil {
			return nil, err
		}
		secret.Value = ""
		return secret, nil
	}
	secrets, err := c.ListSecrets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range secrets {
		if secrets[i].Name == name {
			return &secrets[i], nil
		}
	}
	return nil, NewError(KindNotFound, op, "secret %q not found", name)
}

// GetSecretValue returns the value of a secret. owner selects a secret
// another user shared with the current project.
func (c *Client) GetSecretValue(ctx context.Context, name, owner string) (string, error) {
	const op = "get secret value"
	if owner != "" {
		secret, err := c.getSharedSecret(ctx, op, name, owner)
		if err != nil {
			return "", err
		}
		return secret.Value, nil
	}
	var resp itemsEnvelope[Secret]
	if err := c.get(ctx, op, secretsRoot+"/"+url.PathEscape(name), nil, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", NewError(KindNotFound, op, "secret %q not found", name)
	}
	return resp.Items[0].Value, nil
}

func (c *Client) getSharedSecret(ctx context.Context, op, name, owner string) (*Secret, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("owner", owner)
	var resp itemsEnvelope[Secret]
	if err := c.get(ctx, op, secretsRoot+"/shared", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, op, "secret %q shared by %s not found", name, owner)
	}
	secret := resp.Items[0]
	if secret.Name == "" {
		secret.Name = name
	}
	if secret.Owner == "" {
		secret.Owner = owner
	}
	return &secret, nil
}

// DeleteSecret removes a secret owned by the caller.
func (c *Client) DeleteSecret(ctx context.Context, name string) error {
	return c.delete(ctx, "delete secret", secretsRoot+"/"+url.PathEscape(name), nil)
}
