// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/hopsworks-community/hopsworks-mcp-server/internal/hopsworks"
)

func (r *Registry) registerGitTools() {
	r.read(tool("get_git_api",
		"Connect to the current project's git API.",
		noArgs()),
		r.handleGetGitAPI)

	r.write(tool("set_provider",
		"Store credentials for a hosted git provider.",
		schema(map[string]any{
			"provider": enumProp("Git provider", "GitHub", "GitLab", "BitBucket"),
			"username": stringProp("Provider account username"),
			"token":    stringProp("Provider access token"),
		}, "provider", "username", "token")),
		r.handleSetGitProvider)

	r.read(tool("get_provider",
		"Get a configured git provider.",
		schema(map[string]any{
			"provider": enumProp("Git provider", "GitHub", "GitLab", "BitBucket"),
		}, "provider")),
		r.handleGetGitProvider)

	r.read(tool("get_providers",
		"List all configured git providers.",
		noArgs()),
		r.handleGetGitProviders)

	r.destructive(tool("delete_provider",
		"Remove a configured git provider.",
		schema(map[string]any{
			"provider": enumProp("Git provider", "GitHub", "GitLab", "BitBucket"),
		}, "provider")),
		r.handleDeleteGitProvider)

	r.write(tool("clone_repo",
		"Clone a git repository into the project filesystem.",
		schema(map[string]any{
			"url":      stringProp("Repository URL"),
			"path":     stringProp("Target directory in the project filesystem"),
			"provider": stringProp("Provider owning the repository, inferred from the URL when omitted"),
			"branch":   stringProp("Branch to clone"),
		}, "url", "path")),
		r.handleCloneGitRepo)

	r.read(tool("get_repo",
		"Get a cloned repository by name.",
		schema(map[string]any{
			"name": stringProp("Repository name"),
			"path": stringProp("Disambiguating path when several repositories share a name"),
		}, "name")),
		r.handleGetGitRepo)

	r.read(tool("get_repos",
		"List all repositories cloned into the project.",
		noArgs()),
		r.handleGetGitRepos)

	r.write(tool("checkout_branch",
		"Checkout a branch in a cloned repository, optionally creating it.",
		schema(map[string]any{
			"repo_name": stringProp("Repository name"),
			"branch":    stringProp("Branch to checkout"),
			"create":    boolProp("Create the branch first"),
			"path":      stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name", "branch")),
		r.handleCheckoutGitBranch)

	r.write(tool("commit",
		"Stage and commit changes in a cloned repository.",
		schema(map[string]any{
			"repo_name":   stringProp("Repository name"),
			"message":     stringProp("Commit message"),
			"all_changes": boolProp("Stage every change, default true"),
			"files":       stringArrayProp("Files to stage when all_changes is false"),
			"path":        stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name", "message")),
		r.handleCommitGitRepo)

	r.write(tool("push",
		"Push a branch of a cloned repository to its remote.",
		schema(map[string]any{
			"repo_name": stringProp("Repository name"),
			"branch":    stringProp("Branch to push"),
			"remote":    stringProp("Remote name, default origin"),
			"path":      stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name", "branch")),
		r.handlePushGitBranch)

	r.write(tool("pull",
		"Pull a branch of a cloned repository from its remote.",
		schema(map[string]any{
			"repo_name": stringProp("Repository name"),
			"branch":    stringProp("Branch to pull"),
			"remote":    stringProp("Remote name, default origin"),
			"path":      stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name", "branch")),
		r.handlePullGitBranch)

	r.write(tool("add_remote",
		"Add a named remote to a cloned repository.",
		schema(map[string]any{
			"repo_name":   stringProp("Repository name"),
			"remote_name": stringProp("Remote name"),
			"url":         stringProp("Remote URL"),
			"path":        stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name", "remote_name", "url")),
		r.handleAddGitRemote)

	r.read(tool("get_remotes",
		"List the remotes of a cloned repository.",
		schema(map[string]any{
			"repo_name": stringProp("Repository name"),
			"path":      stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name")),
		r.handleGetGitRemotes)

	r.read(tool("status",
		"Get the working tree status of a cloned repository.",
		schema(map[string]any{
			"repo_name": stringProp("Repository name"),
			"path":      stringProp("Disambiguating path when several repositories share a name"),
		}, "repo_name")),
		r.handleGitStatus)
}

func (r *Registry) handleGetGitAPI(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	repos, err := session.Client().ListGitRepos(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":    "ok",
		"connected": true,
		"project":   session.Project().Name,
		"repos":     len(repos),
	}, nil
}

type gitProviderArgs struct {
	Provider string `json:"provider"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (r *Registry) handleSetGitProvider(ctx context.Context, args json.RawMessage) (any, error) {
	var a gitProviderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	provider, err := session.Client().SetGitProvider(ctx, session.Project().ID, a.Provider, a.Username, a.Token)
	if err != nil {
		return nil, err
	}
	// The stored token never goes back to the caller.
	return map[string]any{
		"status":   "configured",
		"provider": provider.GitProvider,
		"username": provider.Username,
	}, nil
}

func (r *Registry) handleGetGitProvider(ctx context.Context, args json.RawMessage) (any, error) {
	var a gitProviderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	provider, err := session.Client().GetGitProvider(ctx, session.Project().ID, a.Provider)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":   "ok",
		"provider": provider.GitProvider,
		"username": provider.Username,
	}, nil
}

func (r *Registry) handleGetGitProviders(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	providers, err := session.Client().ListGitProviders(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	summaries := make([]map[string]any, 0, len(providers))
	for _, p := range providers {
		summaries = append(summaries, map[string]any{
			"provider": p.GitProvider,
			"username": p.Username,
		})
	}
	return map[string]any{"status": "ok", "count": len(summaries), "providers": summaries}, nil
}

func (r *Registry) handleDeleteGitProvider(ctx context.Context, args json.RawMessage) (any, error) {
	var a gitProviderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	if err := session.Client().DeleteGitProvider(ctx, session.Project().ID, a.Provider); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "provider": a.Provider}, nil
}

type cloneRepoArgs struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Provider string `json:"provider"`
	Branch   string `json:"branch"`
}

func (r *Registry) handleCloneGitRepo(ctx context.Context, args json.RawMessage) (any, error) {
	var a cloneRepoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	repo, err := session.Client().CloneGitRepo(ctx, session.Project().ID, a.URL, a.Path, a.Provider, a.Branch)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "cloned", "repo": repo}, nil
}

type gitRepoRef struct {
	Name     string `json:"name"`
	RepoName string `json:"repo_name"`
	Path     string `json:"path"`
}

// repoName tolerates both the name and repo_name argument spellings
// the catalog uses across repository tools.
func (ref gitRepoRef) repoName() string {
	if ref.RepoName != "" {
		return ref.RepoName
	}
	return ref.Name
}

func (r *Registry) resolveGitRepo(ctx context.Context, ref gitRepoRef) (*hopsworks.Session, *hopsworks.GitRepo, error) {
	session, err := r.session()
	if err != nil {
		return nil, nil, err
	}
	repo, err := session.Client().GetGitRepo(ctx, session.Project().ID, ref.repoName(), ref.Path)
	if err != nil {
		return nil, nil, err
	}
	return session, repo, nil
}

func (r *Registry) handleGetGitRepo(ctx context.Context, args json.RawMessage) (any, error) {
	var a gitRepoRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, repo, err := r.resolveGitRepo(ctx, a)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "repo": repo}, nil
}

func (r *Registry) handleGetGitRepos(ctx context.Context, args json.RawMessage) (any, error) {
	session, err := r.session()
	if err != nil {
		return nil, err
	}
	repos, err := session.Client().ListGitRepos(ctx, session.Project().ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "count": len(repos), "repos": repos}, nil
}

type checkoutArgs struct {
	gitRepoRef
	Branch string `json:"branch"`
	Create bool   `json:"create"`
}

func (r *Registry) handleCheckoutGitBranch(ctx context.Context, args json.RawMessage) (any, error) {
	var a checkoutArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a.gitRepoRef)
	if err != nil {
		return nil, err
	}
	repo, err = session.Client().CheckoutGitBranch(ctx, session.Project().ID, repo, a.Branch, a.Create)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  "checked_out",
		"repo":    repo.Name,
		"branch":  repo.CurrentBranch,
		"created": a.Create,
	}, nil
}

type commitArgs struct {
	gitRepoRef
	Message    string   `json:"message"`
	AllChanges *bool    `json:"all_changes"`
	Files      []string `json:"files"`
}

func (r *Registry) handleCommitGitRepo(ctx context.Context, args json.RawMessage) (any, error) {
	var a commitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a.gitRepoRef)
	if err != nil {
		return nil, err
	}
	all := true
	if a.AllChanges != nil {
		all = *a.AllChanges
	}
	repo, err = session.Client().CommitGitRepo(ctx, session.Project().ID, repo, a.Message, all, a.Files)
	if err != nil {
		return nil, err
	}
	result := map[string]any{
		"status": "committed",
		"repo":   repo.Name,
		"branch": repo.CurrentBranch,
	}
	if repo.CurrentCommit != nil {
		result["commit"] = repo.CurrentCommit.CommitHash
		result["message"] = repo.CurrentCommit.Message
	}
	return result, nil
}

type remoteBranchArgs struct {
	gitRepoRef
	Branch string `json:"branch"`
	Remote string `json:"remote"`
}

func (a remoteBranchArgs) remote() string {
	if a.Remote == "" {
		return "origin"
	}
	return a.Remote
}

func (r *Registry) handlePushGitBranch(ctx context.Context, args json.RawMessage) (any, error) {
	var a remoteBranchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a.gitRepoRef)
	if err != nil {
		return nil, err
	}
	if _, err := session.Client().PushGitBranch(ctx, session.Project().ID, repo, a.Branch, a.remote()); err != nil {
		return nil, err
	}
	return map[string]any{"status": "pushed", "repo": repo.Name, "branch": a.Branch, "remote": a.remote()}, nil
}

func (r *Registry) handlePullGitBranch(ctx context.Context, args json.RawMessage) (any, error) {
	var a remoteBranchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a.gitRepoRef)
	if err != nil {
		return nil, err
	}
	if _, err := session.Client().PullGitBranch(ctx, session.Project().ID, repo, a.Branch, a.remote()); err != nil {
		return nil, err
	}
	return map[string]any{"status": "pulled", "repo": repo.Name, "branch": a.Branch, "remote": a.remote()}, nil
}

type addRemoteArgs struct {
	gitRepoRef
	RemoteName string `json:"remote_name"`
	URL        string `json:"url"`
}

func (r *Registry) handleAddGitRemote(ctx context.Context, args json.RawMessage) (any, error) {
	var a addRemoteArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a.gitRepoRef)
	if err != nil {
		return nil, err
	}
	remote, err := session.Client().AddGitRemote(ctx, session.Project().ID, repo, a.RemoteName, a.URL)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "added", "repo": repo.Name, "remote": remote}, nil
}

func (r *Registry) handleGetGitRemotes(ctx context.Context, args json.RawMessage) (any, error) {
	var a gitRepoRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a)
	if err != nil {
		return nil, err
	}
	remotes, err := session.Client().ListGitRemotes(ctx, session.Project().ID, repo)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "ok", "repo": repo.Name, "count": len(remotes), "remotes": remotes}, nil
}

func (r *Registry) handleGitStatus(ctx context.Context, args json.RawMessage) (any, error) {
	var a gitRepoRef
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	session, repo, err := r.resolveGitRepo(ctx, a)
	if err != nil {
		return nil, err
	}
	files, err := session.Client().GitStatus(ctx, session.Project().ID, repo)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status": "ok",
		"repo":   repo.Name,
		"branch": repo.CurrentBranch,
		"count":  len(files),
		"files":  files,
	}, nil
}
