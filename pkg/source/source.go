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
	"strings"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/secret"
)

// Fetcher retrieves the authoritative artifact content from source control.
type Fetcher interface {
	// Fetch returns a FETCH_FAILED structured error when the content cannot
	// be retrieved.
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Publisher pushes uploaded artifacts to source control.
type Publisher interface {
	Publish(ctx context.Context, name string, content []byte, message string) error
}

// Provider types.
const (
	ProviderHTTP   = "http"
	ProviderGitHub = "github"
	ProviderNone   = "none"
)

// Default repository coordinates.
const (
	DefaultRepository = "org/backend-im"
	DefaultRef        = "main"
)

// Config locates artifacts in source control.
type Config struct {
	// Provider selects the fetcher: http (raw file URLs) or github.
	Provider string `yaml:"provider"`
	// Publisher selects the publisher: github or none.
	Publisher string `yaml:"publisher"`
	// Repository is "owner/name".
	Repository string `yaml:"repository"`
	// Ref is the branch artifacts are read from and published to.
	Ref string `yaml:"ref"`
	// Dir is an optional directory inside the repository.
	Dir string `yaml:"dir,omitempty"`
	// GitHubAPIURL targets GitHub Enterprise; empty uses github.com.
	GitHubAPIURL string `yaml:"githubAPIURL,omitempty"`
}

// WithDefaults fills empty fields.
func (c Config) WithDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderHTTP
	}
	if c.Publisher == "" {
		c.Publisher = ProviderNone
	}
	if c.Repository == "" {
		c.Repository = DefaultRepository
	}
	if c.Ref == "" {
		c.Ref = DefaultRef
	}
	return c
}

// Branch returns the fully qualified branch ref, e.g. refs/heads/main.
func (c Config) Branch() string {
	return "refs/heads/" + c.WithDefaults().Ref
}

// ownerRepo splits Repository.
func (c Config) ownerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"repository must be owner/name", map[string]any{"repository": c.Repository})
	}
	return owner, repo, nil
}

// filePath joins Dir and name.
func (c Config) filePath(name string) string {
	dir := strings.Trim(c.Dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// NewFetcher builds the configured Fetcher. SourceHost is the raw file host
// for http and the API URL override for github.
func NewFetcher(cfg Config, creds secret.Credentials) (Fetcher, error) {
	cfg = cfg.WithDefaults()
	switch strings.ToLower(cfg.Provider) {
	case ProviderHTTP:
		return NewHTTPFetcher(cfg, creds)
	case ProviderGitHub:
		return NewGitHubFetcher(cfg, creds)
	default:
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unsupported source provider",
			map[string]any{"provider": cfg.Provider})
	}
}

// NewPublisher builds the configured Publisher.
func NewPublisher(cfg Config, creds secret.Credentials) (Publisher, error) {
	cfg = cfg.WithDefaults()
	switch strings.ToLower(cfg.Publisher) {
	case ProviderNone:
		return Noop{}, nil
	case ProviderGitHub:
		return NewGitHubPublisher(cfg, creds)
	default:
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unsupported source publisher",
			map[string]any{"publisher": cfg.Publisher})
	}
}

// Noop is a Publisher that does nothing.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, string) error { return nil }
