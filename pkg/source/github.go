// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/secret"
)

// newGitHubClient authenticates with token and targets apiURL when set.
func newGitHubClient(apiURL, token string) (*github.Client, error) {
	c := github.NewClient(newHTTPClient())
	if token != "" {
		c = c.WithAuthToken(token)
	}
	if apiURL != "" {
		var err error
		c, err = c.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid GitHub API URL", err)
		}
	}
	return c, nil
}

// apiURL picks the GitHub API endpoint: the explicit config value, else the
// source host unless it is plain github.com.
func apiURL(cfg Config, creds secret.Credentials) string {
	if cfg.GitHubAPIURL != "" {
		return cfg.GitHubAPIURL
	}
	host := strings.TrimRight(creds.SourceHost, "/")
	if host == "" || host == "https://github.com" || host == "https://api.github.com" {
		return ""
	}
	return host
}

// GitHubFetcher reads files through the repository contents API.
type GitHubFetcher struct {
	client *github.Client
	cfg    Config
	owner  string
	repo   string
}

// NewGitHubFetcher returns a contents API fetcher.
func NewGitHubFetcher(cfg Config, creds secret.Credentials) (*GitHubFetcher, error) {
	cfg = cfg.WithDefaults()
	owner, repo, err := cfg.ownerRepo()
	if err != nil {
		return nil, err
	}
	c, err := newGitHubClient(apiURL(cfg, creds), creds.SourceToken)
	if err != nil {
		return nil, err
	}
	return &GitHubFetcher{client: c, cfg: cfg, owner: owner, repo: repo}, nil
}

func (f *GitHubFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	path := f.cfg.filePath(name)
	errCtx := map[string]any{"repository": f.cfg.Repository, "path": path, "ref": f.cfg.Ref}

	file, _, resp, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, path,
		&github.RepositoryContentGetOptions{Ref: f.cfg.Ref})
	if err != nil {
		if resp != nil {
			errCtx["status"] = resp.StatusCode
		}
		return nil, errors.WrapWithContext(errors.ErrCodeFetch, "failed to fetch file contents", err, errCtx)
	}
	if file == nil {
		return nil, errors.NewWithContext(errors.ErrCodeFetch, "path is a directory", errCtx)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeFetch, "failed to decode file contents", err, errCtx)
	}
	if len(content) > defaults.MaxArtifactBytes {
		errCtx["limit"] = defaults.MaxArtifactBytes
		return nil, errors.NewWithContext(errors.ErrCodeFetch, "source file exceeds size limit", errCtx)
	}
	return []byte(content), nil
}

// GitHubPublisher commits artifacts to the configured branch.
type GitHubPublisher struct {
	client *github.Client
	cfg    Config
	owner  string
	repo   string
}

// NewGitHubPublisher returns a publisher. A token is required.
func NewGitHubPublisher(cfg Config, creds secret.Credentials) (*GitHubPublisher, error) {
	cfg = cfg.WithDefaults()
	if creds.SourceToken == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "SOURCE-TOKEN is required to publish to GitHub")
	}
	owner, repo, err := cfg.ownerRepo()
	if err != nil {
		return nil, err
	}
	c, err := newGitHubClient(apiURL(cfg, creds), creds.SourceToken)
	if err != nil {
		return nil, err
	}
	return &GitHubPublisher{client: c, cfg: cfg, owner: owner, repo: repo}, nil
}

// Publish creates the file or updates it in place.
func (p *GitHubPublisher) Publish(ctx context.Context, name string, content []byte, message string) error {
	path := p.cfg.filePath(name)
	errCtx := map[string]any{"repository": p.cfg.Repository, "path": path, "ref": p.cfg.Ref}

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(p.cfg.Ref),
	}

	existing, _, resp, err := p.client.Repositories.GetContents(ctx, p.owner, p.repo, path,
		&github.RepositoryContentGetOptions{Ref: p.cfg.Ref})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		_, _, err = p.client.Repositories.UpdateFile(ctx, p.owner, p.repo, path, opts)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		_, _, err = p.client.Repositories.CreateFile(ctx, p.owner, p.repo, path, opts)
	case err == nil:
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to publish artifact", err, errCtx)
	}
	return nil
}
