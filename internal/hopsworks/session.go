// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hopsworks-community/hopsworks-mcp-server/pkg/config"
)

// LoginParams are the parameters accepted by the login operation. Empty
// fields fall back to the configured connection settings.
type LoginParams struct {
	Host    string
	Port    int
	Project string
	APIKey  string
	Engine  config.Engine
}

// Session is an authenticated connection to one Hopsworks project. It is
// created by SessionManager.Login and shared read-only by all tools.
type Session struct {
	client  *Client
	project *Project
	engine  config.Engine

	mu            sync.Mutex
	featureStores map[string]*FeatureStore // keyed by project name, "" = current
	spineGroups   *SpineGroupStore
}

// Client returns the underlying API client.
func (s *Session) Client() *Client { return s.client }

// Project returns the project this session is scoped to.
func (s *Session) Project() *Project { return s.project }

// Engine returns the compute engine requested at login.
func (s *Session) Engine() config.Engine { return s.engine }

// SpineGroups returns the session-scoped spine group store.
func (s *Session) SpineGroups() *SpineGroupStore { return s.spineGroups }

// FeatureStore resolves the feature store of the named project, or the
// session project's own store when projectName is empty. Results are
// cached for the session lifetime.
func (s *Session) FeatureStore(ctx context.Context, projectName string) (*FeatureStore, error) {
	s.mu.Lock()
	if fs, ok := s.featureStores[projectName]; ok {
		s.mu.Unlock()
		return fs, nil
	}
	s.mu.Unlock()

	projectID := s.project.ID
	if projectName != "" && projectName != s.project.Name {
		p, err := s.client.GetProjectByName(ctx, projectName)
		if err != nil {
			return nil, err
		}
		projectID = p.ID
	}

	fs, err := s.client.GetDefaultFeatureStore(ctx, projectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.featureStores[projectName] = fs
	s.mu.Unlock()
	return fs, nil
}

// ModelRegistry resolves the model registry handle for the session project.
func (s *Session) ModelRegistry(ctx context.Context) (*ModelRegistry, error) {
	return s.client.GetModelRegistry(ctx, s.project.ID)
}

// SessionManager owns the process-wide Hopsworks session. It replaces the
// SDK's ambient "current project" global with an injectable object:
// write-once at login, read-many afterwards.
type SessionManager struct {
	cfg *config.Config
	log *zap.Logger

	mu      sync.RWMutex
	session *Session
}

// NewSessionManager creates a session manager bound to the given config.
func NewSessionManager(cfg *config.Config, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{cfg: cfg, log: log}
}

// Login establishes the session. Each call replaces any previous session.
func (m *SessionManager) Login(ctx context.Context, params LoginParams) (*Session, error) {
	host := params.Host
	if host == "" {
		host = m.cfg.Host
	}
	port := params.Port
	if port == 0 {
		port = m.cfg.Port
	}
	projectName := params.Project
	if projectName == "" {
		projectName = m.cfg.Project
	}
	apiKey := params.APIKey
	if apiKey == "" {
		apiKey = m.cfg.APIKey
	}
	engine := params.Engine
	if engine == "" {
		engine = m.cfg.Engine
	}

	if host == "" {
		return nil, NewError(KindInvalidArgument, "login", "host is required (argument or HOPSWORKS_MCP_HOST)")
	}
	if apiKey == "" {
		return nil, NewError(KindInvalidArgument, "login", "api key is required (argument or HOPSWORKS_MCP_API_KEY)")
	}

	baseURL := fmt.Sprintf("https://%s:%d/hopsworks-api/api", host, port)
	opts := []ClientOption{
		WithLogger(m.log),
		WithMaxRetries(m.cfg.MaxRetries),
		WithHTTPClient(newHTTPClient(m.cfg)),
	}
	if !m.cfg.HostnameVerification {
		opts = append(opts, WithInsecureSkipVerify())
	}
	client := NewClient(baseURL, apiKey, opts...)

	var project *Project
	var err error
	if projectName != "" {
		project, err = client.GetProjectByName(ctx, projectName)
	} else {
		project, err = client.GetFirstProject(ctx)
	}
	if err != nil {
		return nil, err
	}

	session := &Session{
		client:        client,
		project:       project,
		engine:        engine,
		featureStores: make(map[string]*FeatureStore),
		spineGroups:   NewSpineGroupStore(),
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.log.Info("hopsworks session established",
		zap.String("host", host),
		zap.String("project", project.Name),
		zap.String("engine", string(engine)),
	)
	return session, nil
}

// Current returns the active session, or an unauthenticated error when no
// login has happened yet.
func (m *SessionManager) Current() (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, NewError(KindUnauthenticated, "session", "not logged in: call the login tool first")
	}
	return m.session, nil
}

// Close tears down the session. Safe to call without a prior login.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.client.httpClient.CloseIdleConnections()
		m.session = nil
	}
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond}
}
