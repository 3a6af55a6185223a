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
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/secret"
	"github.com/NVIDIA/vetter/pkg/serializer"
)

// HTTPFetcher reads raw files from a Gitea style host:
// {host}/{owner}/{repo}/raw/{ref}/{path}.
type HTTPFetcher struct {
	reader *serializer.HttpReader
	base   *url.URL
	cfg    Config
}

// NewHTTPFetcher returns a fetcher for creds.SourceHost.
func NewHTTPFetcher(cfg Config, creds secret.Credentials) (*HTTPFetcher, error) {
	cfg = cfg.WithDefaults()
	if _, _, err := cfg.ownerRepo(); err != nil {
		return nil, err
	}

	host := strings.TrimRight(creds.SourceHost, "/")
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "source host must be an absolute URL",
			map[string]any{"host": creds.SourceHost})
	}

	var auth serializer.RequestDecorator
	switch {
	case creds.SourceUser != "":
		auth = serializer.BasicAuth(creds.SourceUser, creds.SourceToken)
	case creds.SourceToken != "":
		auth = serializer.TokenAuth(creds.SourceToken)
	}

	return &HTTPFetcher{
		reader: serializer.NewHttpReader(
			serializer.WithClient(newHTTPClient()),
			serializer.WithRequestDecorator(auth),
			serializer.WithMaxBytes(defaults.MaxArtifactBytes),
		),
		base: u,
		cfg:  cfg,
	}, nil
}

// newHTTPClient returns a traced client on the shared tuned transport.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   defaults.HTTPClientTimeout,
		Transport: otelhttp.NewTransport(serializer.NewDefaultTransport()),
	}
}

// URL returns the raw file URL for name.
func (f *HTTPFetcher) URL(name string) string {
	u := *f.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + f.cfg.Repository + "/raw/" + f.cfg.Ref + "/" + f.cfg.filePath(name)
	return u.String()
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	target := f.URL(name)
	b, err := f.reader.ReadWithContext(ctx, target)
	if err == nil {
		return b, nil
	}

	var se *serializer.HTTPStatusError
	switch {
	case stderrors.As(err, &se):
		return nil, errors.NewWithContext(errors.ErrCodeFetch, fmt.Sprintf("source returned %d", se.StatusCode),
			map[string]any{"url": target, "status": se.StatusCode, "body": se.Body})
	case stderrors.Is(err, serializer.ErrResponseTooLarge):
		return nil, errors.NewWithContext(errors.ErrCodeFetch, "source file exceeds size limit",
			map[string]any{"url": target, "limit": defaults.MaxArtifactBytes})
	default:
		return nil, errors.WrapWithContext(errors.ErrCodeFetch, "source request failed", err,
			map[string]any{"url": target})
	}
}
