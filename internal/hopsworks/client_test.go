// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

func TestErrorKindFromStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{400, KindInvalidArgument},
		{401, KindUnauthenticated},
		{403, KindPermissionDenied},
		{404, KindNotFound},
		{409, KindConflict},
		{429, KindUnavailable},
		{503, KindUnavailable},
		{500, KindBackend},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"errorMsg":"boom"}`))
		}))

		c := NewClient(srv.URL, "key", WithMaxRetries(0))
		_, err := c.ListProjects(context.Background())
		srv.Close()

		require.Error(t, err, "status %d", tc.status)
		assert.Equal(t, tc.kind, KindOf(err), "status %d", tc.status)
	}
}

func TestErrorMessagePrefersUserMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errorCode":270009,"errorMsg":"internal detail","usrMsg":"Featuregroup wasn't found."}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithMaxRetries(0))
	_, err := c.GetProject(context.Background(), 119)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Featuregroup wasn't found.")
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.True(t, IsNotFound(err))
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":119,"name":"sales"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithMaxRetries(2))
	projects, err := c.ListProjects(context.Background())

	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "sales", projects[0].Name)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", WithMaxRetries(5))
	_, err := c.ListProjects(context.Background())

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIKeyHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	_, err := c.ListProjects(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ApiKey secret-key", auth)
}

func TestSessionManagerCurrentBeforeLogin(t *testing.T) {
	m := NewSessionManager(config.DefaultConfig(), nil)

	_, err := m.Current()

	require.Error(t, err)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestLoginRequiresHostAndAPIKey(t *testing.T) {
	cfg := config.DefaultConfig()
	m := NewSessionManager(cfg, nil)

	_, err := m.Login(context.Background(), LoginParams{APIKey: "key"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Contains(t, err.Error(), "host")

	_, err = m.Login(context.Background(), LoginParams{Host: "demo.hops.works"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Contains(t, err.Error(), "api key")
}

func TestSessionFeatureStoreCaching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"featurestoreId":67,"featurestoreName":"sales_featurestore","projectId":119,"projectName":"sales"}]`))
	}))
	defer srv.Close()

	session := &Session{
		client:        NewClient(srv.URL, "key"),
		project:       &Project{ID: 119, Name: "sales"},
		engine:        config.EnginePython,
		featureStores: make(map[string]*FeatureStore),
		spineGroups:   NewSpineGroupStore(),
	}

	fs, err := session.FeatureStore(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 67, fs.ID)

	again, err := session.FeatureStore(context.Background(), "")
	require.NoError(t, err)
	assert.Same(t, fs, again)
	assert.Equal(t, int32(1), calls.Load())
}
