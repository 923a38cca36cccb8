// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hopsworks-api/api/project/getProjectInfo/sales":
			fmt.Fprint(w, `{"id":119,"name":"sales","owner":"admin@hopsworks.ai"}`)
		case "/hopsworks-api/api/project":
			fmt.Fprint(w, `[{"id":119,"name":"sales","owner":"admin@hopsworks.ai","created":"2025-01-07"},{"id":120,"name":"fraud","owner":"admin@hopsworks.ai"}]`)
		case "/hopsworks-api/api/project/119":
			fmt.Fprint(w, `{"id":119,"name":"sales","owner":"admin@hopsworks.ai","description":"retail features"}`)
		case "/hopsworks-api/api/project/119/featurestores":
			fmt.Fprint(w, `[{"featurestoreId":67,"featurestoreName":"sales_featurestore","projectId":119,"projectName":"sales","onlineEnabled":true,"numFeatureGroups":12}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	sessions := hopsworks.NewSessionManager(cfg, nil)
	_, err = sessions.Login(context.Background(), hopsworks.LoginParams{
		Host:    u.Hostname(),
		Port:    port,
		Project: "sales",
		APIKey:  "test-key",
	})
	require.NoError(t, err)

	return NewRegistry(sessions, cfg)
}

func TestListAndTemplates(t *testing.T) {
	r := NewRegistry(hopsworks.NewSessionManager(config.DefaultConfig(), nil), config.DefaultConfig())

	defs := r.List()
	require.Len(t, defs, 1)
	assert.Equal(t, "projects://list", defs[0].URI)
	assert.Equal(t, mimeJSON, defs[0].MimeType)

	tmpls := r.Templates()
	require.Len(t, tmpls, 1)
	assert.Equal(t, "projects://{project_id}", tmpls[0].URITemplate)
}

func TestReadRejectsUnknownScheme(t *testing.T) {
	r := NewRegistry(hopsworks.NewSessionManager(config.DefaultConfig(), nil), config.DefaultConfig())

	_, _, err := r.Read(context.Background(), "jobs://list")

	require.Error(t, err)
	assert.Equal(t, hopsworks.KindInvalidArgument, hopsworks.KindOf(err))
}

func TestReadRequiresLogin(t *testing.T) {
	r := NewRegistry(hopsworks.NewSessionManager(config.DefaultConfig(), nil), config.DefaultConfig())

	_, _, err := r.Read(context.Background(), "projects://list")

	require.Error(t, err)
	assert.Equal(t, hopsworks.KindUnauthenticated, hopsworks.KindOf(err))
}

func TestReadProjectList(t *testing.T) {
	r := newTestRegistry(t)

	content, mimeType, err := r.Read(context.Background(), "projects://list")
	require.NoError(t, err)
	assert.Equal(t, mimeJSON, mimeType)

	var out struct {
		Count    int `json:"count"`
		Projects []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"projects"`
	}
	require.NoError(t, json.Unmarshal([]byte(content), &out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "sales", out.Projects[0].Name)
}

func TestReadProjectByID(t *testing.T) {
	r := newTestRegistry(t)

	content, _, err := r.Read(context.Background(), "projects://119")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(content), &out))
	assert.Equal(t, "sales", out["name"])

	fs, ok := out["feature_store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(67), fs["id"])
	assert.Equal(t, true, fs["online_enabled"])
}

func TestReadProjectRejectsNonNumericID(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.Read(context.Background(), "projects://sales")

	require.Error(t, err)
	assert.Equal(t, hopsworks.KindInvalidArgument, hopsworks.KindOf(err))
}
