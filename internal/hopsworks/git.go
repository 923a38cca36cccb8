// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Git provider names accepted by the platform.
const (
	ProviderGitHub    = "GitHub"
	ProviderGitLab    = "GitLab"
	ProviderBitBucket = "BitBucket"
)

// ValidateGitProvider checks a provider name, case-insensitively, and
// returns its canonical spelling.
func ValidateGitProvider(name string) (string, error) {
	for _, p := range []string{ProviderGitHub, ProviderGitLab, ProviderBitBucket} {
		if strings.EqualFold(name, p) {
			return p, nil
		}
	}
	return "", NewError(KindInvalidArgument, "git",
		"unknown git provider %q (expected GitHub, GitLab or BitBucket)", name)
}

// GitProvider is a stored credential for a hosted git service.
type GitProvider struct {
	GitProvider string `json:"gitProvider"`
	Username    string `json:"username"`
	Token       string `json:"token,omitempty"`
}

// GitCommit is the commit a repository currently points at.
type GitCommit struct {
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Message    string `json:"message,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	Time       int64  `json:"time,omitempty"`
}

// GitRepo is a repository cloned into the project filesystem.
type GitRepo struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Path          string     `json:"path"`
	Provider      string     `json:"provider,omitempty"`
	CurrentBranch string     `json:"currentBranch,omitempty"`
	CurrentCommit *GitCommit `json:"currentCommit,omitempty"`
	Creator       string     `json:"creator,omitempty"`
	ReadOnly      bool       `json:"readOnly,omitempty"`
}

// GitRemote is a named remote of a repository.
type GitRemote struct {
	Name string `json:"remoteName"`
	URL  string `json:"url"`
}

// GitFileStatus is one entry of a repository status listing.
type GitFileStatus struct {
	File   string `json:"file"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

// gitOpExecution is the async handle every git command returns.
type gitOpExecution struct {
	ID         int             `json:"id"`
	State      string          `json:"state"`
	Repository *GitRepo        `json:"repository,omitempty"`
	Result     json.RawMessage `json:"commandResultMessage,omitempty"`
}

func gitRoot(projectID int) string {
	return fmt.Sprintf("project/%d/git", projectID)
}

func gitRepoPath(projectID, repoID int) string {
	return fmt.Sprintf("%s/repository/%d", gitRoot(projectID), repoID)
}

// SetGitProvider stores credentials for a git provider.
func (c *Client) SetGitProvider(ctx context.Context, projectID int, provider, username, token string) (*GitProvider, error) {
	const op = "set git provider"
	name, err := ValidateGitProvider(provider)
	if err != nil {
		return nil, err
	}
	if username == "" || token == "" {
		return nil, NewError(KindInvalidArgument, op, "username and token are required")
	}
	body := GitProvider{GitProvider: name, Username: username, Token: token}
	var saved GitProvider
	if err := c.post(ctx, op, gitRoot(projectID)+"/provider", nil, body, &saved); err != nil {
		return nil, err
	}
	if saved.GitProvider == "" {
		saved = GitProvider{GitProvider: name, Username: username}
	}
	saved.Token = ""
	return &saved, nil
}

// ListGitProviders returns the configured git providers. Tokens are
// never returned.
func (c *Client) ListGitProviders(ctx context.Context, projectID int) ([]GitProvider, error) {
	var resp itemsEnvelope[GitProvider]
	if err := c.get(ctx, "list git providers", gitRoot(projectID)+"/provider", nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Items {
		resp.Items[i].Token = ""
	}
	return resp.Items, nil
}

// GetGitProvider returns one configured provider by name.
func (c *Client) GetGitProvider(ctx context.Context, projectID int, provider string) (*GitProvider, error) {
	const op = "get git provider"
	name, err := ValidateGitProvider(provider)
	if err != nil {
		return nil, err
	}
	providers, err := c.ListGitProviders(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range providers {
		if strings.EqualFold(providers[i].GitProvider, name) {
			return &providers[i], nil
		}
	}
	return nil, NewError(KindNotFound, op, "git provider %s is not configured", name)
}

// DeleteGitProvider removes stored credentials for a provider.
func (c *Client) DeleteGitProvider(ctx context.Context, projectID int, provider string) error {
	name, err := ValidateGitProvider(provider)
	if err != nil {
		return err
	}
	return c.delete(ctx, "delete git provider", gitRoot(projectID)+"/provider/"+url.PathEscape(name), nil)
}

// ListGitRepos returns the repositories cloned into the project.
func (c *Client) ListGitRepos(ctx context.Context, projectID int) ([]GitRepo, error) {
	q := url.Values{}
	q.Set("expand", "creator")
	var resp itemsEnvelope[GitRepo]
	if err := c.get(ctx, "list git repositories", gitRoot(projectID)+"/repository", q, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GetGitRepo returns a repository by name. When several repositories
// share the name, path disambiguates; without it the call fails with a
// conflict listing the candidate paths.
func (c *Client) GetGitRepo(ctx context.Context, projectID int, name, path string) (*GitRepo, error) {
	const op = "get git repository"
	repos, err := c.ListGitRepos(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var matches []*GitRepo
	for i := range repos {
		if !strings.EqualFold(repos[i].Name, name) {
			continue
		}
		if path != "" && repos[i].Path != path {
			continue
		}
		matches = append(matches, &repos[i])
	}
	switch len(matches) {
	case 0:
		return nil, NewError(KindNotFound, op, "git repository %q not found", name)
	case 1:
		return matches[0], nil
	default:
		paths := make([]string, len(matches))
		for i, m := range matches {
			paths[i] = m.Path
		}
		return nil, NewError(KindConflict, op,
			"multiple repositories named %q, pass a path to disambiguate: %s",
			name, strings.Join(paths, ", "))
	}
}

// CloneGitRepo clones a repository into the project filesystem and
// waits for the clone to finish.
func (c *Client) CloneGitRepo(ctx context.Context, projectID int, repoURL, path, provider, branch string) (*GitRepo, error) {
	const op = "clone git repository"
	if repoURL == "" || path == "" {
		return nil, NewError(KindInvalidArgument, op, "repository url and path are required")
	}
	if provider == "" {
		inferred, err := inferGitProvider(repoURL)
		if err != nil {
			return nil, err
		}
		provider = inferred
	} else {
		name, err := ValidateGitProvider(provider)
		if err != nil {
			return nil, err
		}
		provider = name
	}
	body := map[string]any{
		"url":      repoURL,
		"path":     path,
		"provider": provider,
	}
	if branch != "" {
		body["branch"] = branch
	}
	exec, err := c.runGitCommand(ctx, op, gitRoot(projectID)+"/clone", nil, body)
	if err != nil {
		return nil, err
	}
	finished, err := c.awaitGitExecution(ctx, op, projectID, exec)
	if err != nil {
		return nil, err
	}
	if finished.Repository == nil {
		return nil, NewError(KindBackend, op, "clone finished without repository metadata")
	}
	return finished.Repository, nil
}

func inferGitProvider(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", NewError(KindInvalidArgument, "clone git repository", "invalid repository url %q", repoURL)
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "github"):
		return ProviderGitHub, nil
	case strings.Contains(host, "gitlab"):
		return ProviderGitLab, nil
	case strings.Contains(host, "bitbucket"):
		return ProviderBitBucket, nil
	}
	return "", NewError(KindInvalidArgument, "clone git repository",
		"cannot infer git provider from %q, pass one of GitHub, GitLab or BitBucket", repoURL)
}

// CheckoutGitBranch switches a repository to branch, optionally
// creating it first.
func (c *Client) CheckoutGitBranch(ctx context.Context, projectID int, repo *GitRepo, branch string, create bool) (*GitRepo, error) {
	const op = "checkout git branch"
	if err := requireWritableRepo(op, repo); err != nil {
		return nil, err
	}
	if branch == "" {
		return nil, NewError(KindInvalidArgument, op, "branch name is required")
	}
	action := "CHECKOUT"
	if create {
		action = "CREATE_CHECKOUT"
	}
	return c.repoCommand(ctx, op, projectID, repo, action, map[string]any{"branchName": branch})
}

// CommitGitRepo records a commit on the current branch. When
// allChanges is true, modified and deleted files are staged
// automatically; files lists untracked paths to add.
func (c *Client) CommitGitRepo(ctx context.Context, projectID int, repo *GitRepo, message string, allChanges bool, files []string) (*GitRepo, error) {
	const op = "commit git repository"
	if err := requireWritableRepo(op, repo); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, NewError(KindInvalidArgument, op, "commit message is required")
	}
	body := map[string]any{
		"message": message,
		"all":     allChanges,
	}
	if len(files) > 0 {
		body["files"] = files
	}
	return c.repoCommand(ctx, op, projectID, repo, "COMMIT", body)
}

// PushGitBranch pushes a branch to a remote.
func (c *Client) PushGitBranch(ctx context.Context, projectID int, repo *GitRepo, branch, remote string) (*GitRepo, error) {
	const op = "push git branch"
	if err := requireWritableRepo(op, repo); err != nil {
		return nil, err
	}
	if remote == "" {
		remote = "origin"
	}
	return c.repoCommand(ctx, op, projectID, repo, "PUSH", map[string]any{
		"branchName": branch,
		"remoteName": remote,
	})
}

// PullGitBranch pulls a branch from a remote.
func (c *Client) PullGitBranch(ctx context.Context, projectID int, repo *GitRepo, branch, remote string) (*GitRepo, error) {
	const op = "pull git branch"
	if remote == "" {
		remote = "origin"
	}
	return c.repoCommand(ctx, op, projectID, repo, "PULL", map[string]any{
		"branchName": branch,
		"remoteName": remote,
	})
}

// AddGitRemote registers a new remote on a repository.
func (c *Client) AddGitRemote(ctx context.Context, projectID int, repo *GitRepo, remoteName, remoteURL string) (*GitRemote, error) {
	const op = "add git remote"
	if remoteName == "" || remoteURL == "" {
		return nil, NewError(KindInvalidArgument, op, "remote name and url are required")
	}
	if _, err := c.repoCommand(ctx, op, projectID, repo, "ADD_REMOTE", map[string]any{
		"remoteName": remoteName,
		"remoteUrl":  remoteURL,
	}); err != nil {
		return nil, err
	}
	return &GitRemote{Name: remoteName, URL: remoteURL}, nil
}

// ListGitRemotes returns the remotes of a repository.
func (c *Client) ListGitRemotes(ctx context.Context, projectID int, repo *GitRepo) ([]GitRemote, error) {
	var resp itemsEnvelope[GitRemote]
	if err := c.get(ctx, "list git remotes", gitRepoPath(projectID, repo.ID)+"/remote", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// GitStatus reports the working tree status of a repository.
func (c *Client) GitStatus(ctx context.Context, projectID int, repo *GitRepo) ([]GitFileStatus, error) {
	const op = "git status"
	q := url.Values{}
	q.Set("action", "STATUS")
	exec, err := c.runGitCommand(ctx, op, gitRepoPath(projectID, repo.ID), q, map[string]any{})
	if err != nil {
		return nil, err
	}
	finished, err := c.awaitGitExecution(ctx, op, projectID, exec)
	if err != nil {
		return nil, err
	}
	if len(finished.Result) == 0 {
		return nil, nil
	}
	var files []GitFileStatus
	if err := json.Unmarshal(finished.Result, &files); err != nil {
		return nil, NewError(KindBackend, op, "malformed status payload: %v", err)
	}
	return files, nil
}

func requireWritableRepo(op string, repo *GitRepo) error {
	if repo.ReadOnly {
		return NewError(KindPermissionDenied, op, "repository %q is read only", repo.Name)
	}
	return nil
}

// repoCommand runs one async git action against a repository, waits
// for it and returns the refreshed repository metadata.
func (c *Client) repoCommand(ctx context.Context, op string, projectID int, repo *GitRepo, action string, body map[string]any) (*GitRepo, error) {
	q := url.Values{}
	q.Set("action", action)
	exec, err := c.runGitCommand(ctx, op, gitRepoPath(projectID, repo.ID), q, body)
	if err != nil {
		return nil, err
	}
	finished, err := c.awaitGitExecution(ctx, op, projectID, exec)
	if err != nil {
		return nil, err
	}
	if finished.Repository != nil {
		return finished.Repository, nil
	}
	return repo, nil
}

func (c *Client) runGitCommand(ctx context.Context, op, path string, query url.Values, body any) (*gitOpExecution, error) {
	var exec gitOpExecution
	if err := c.post(ctx, op, path, query, body, &exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

// awaitGitExecution polls an async git command until it reaches a
// terminal state.
func (c *Client) awaitGitExecution(ctx context.Context, op string, projectID int, exec *gitOpExecution) (*gitOpExecution, error) {
	if exec.Repository == nil || exec.Repository.ID == 0 {
		// Clone executions carry the repository once the backend has
		// registered it; poll through the project-wide endpoint.
		return c.pollGitExecution(ctx, op, gitRoot(projectID)+fmt.Sprintf("/execution/%d", exec.ID))
	}
	path := gitRepoPath(projectID, exec.Repository.ID) + fmt.Sprintf("/execution/%d", exec.ID)
	return c.pollGitExecution(ctx, op, path)
}

func (c *Client) pollGitExecution(ctx context.Context, op, path string) (*gitOpExecution, error) {
	return backoff.Retry(ctx, func() (*gitOpExecution, error) {
		var current gitOpExecution
		if err := c.get(ctx, op, path, nil, &current); err != nil {
			return nil, backoff.Permanent(err)
		}
		switch current.State {
		case "Success":
			return &current, nil
		case "Failed", "Killed", "Timedout", "Cancelled":
			return nil, backoff.Permanent(NewError(KindBackend, op, "git command %s", strings.ToLower(current.State)))
		default:
			return nil, fmt.Errorf("git command still %s", current.State)
		}
	}, backoff.WithBackOff(backoff.NewConstantBackOff(2*time.Second)),
		backoff.WithMaxElapsedTime(10*time.Minute))
}
