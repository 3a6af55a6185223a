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

package artifact

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/distribution/reference"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/NVIDIA/vetter/pkg/errors"
)

const (
	// ArtifactType is the OCI artifact type of pushed scripts.
	ArtifactType = "application/vnd.nvidia.vetter.script"
	// LayerMediaType is the media type of the single script layer.
	LayerMediaType = "application/vnd.nvidia.vetter.script.layer.v1"

	// ociURIScheme prefixes repository references in configuration.
	ociURIScheme = "oci://"
)

var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// OCIStoreConfig holds configuration for OCIStore.
type OCIStoreConfig struct {
	// Repository is "oci://registry/repository" (tag not allowed).
	Repository string `yaml:"repository,omitempty"`
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool `yaml:"plainHTTP,omitempty"`
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool `yaml:"insecureTLS,omitempty"`
}

// OCIStore keeps each artifact as a single-layer OCI artifact in a registry
// repository, tagged by artifact name.
type OCIStore struct {
	target oras.Target
}

// NewOCIStore connects to the configured repository using Docker credentials
// when available.
func NewOCIStore(cfg OCIStoreConfig) (*OCIStore, error) {
	repoRef, err := parseRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}

	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = cfg.PlainHTTP
	repo.Client = newAuthClient(cfg.PlainHTTP, cfg.InsecureTLS)

	return newOCIStoreWithTarget(repo), nil
}

func newOCIStoreWithTarget(target oras.Target) *OCIStore {
	return &OCIStore{target: target}
}

// parseRepository validates an oci:// repository reference and returns it
// without the scheme.
func parseRepository(uri string) (string, error) {
	if !strings.HasPrefix(uri, ociURIScheme) {
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"invalid OCI repository: expected oci://registry/repository", map[string]any{"repository": uri})
	}

	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(uri, ociURIScheme))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidRequest, "invalid OCI repository", err)
	}
	if _, ok := ref.(reference.Tagged); ok {
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"OCI repository must not carry a tag", map[string]any{"repository": uri})
	}
	if _, ok := ref.(reference.Digested); ok {
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest,
			"OCI repository must not carry a digest", map[string]any{"repository": uri})
	}

	return reference.Domain(ref) + "/" + reference.Path(ref), nil
}

// tagFor maps an artifact name onto a valid OCI tag.
func tagFor(name string) string {
	tag := invalidTagChars.ReplaceAllString(name, "-")
	if len(tag) > 128 {
		tag = tag[:128]
	}
	return tag
}

func (s *OCIStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	tag := tagFor(name)

	staging := memory.New()

	layer, err := oras.PushBytes(ctx, staging, LayerMediaType, data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to stage artifact layer", err)
	}
	layer.Annotations = map[string]string{ociv1.AnnotationTitle: name}

	manifestDesc, err := oras.PackManifest(ctx, staging, oras.PackManifestVersion1_1, ArtifactType,
		oras.PackManifestOptions{Layers: []ociv1.Descriptor{layer}})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to pack manifest", err)
	}

	if err := staging.Tag(ctx, manifestDesc, tag); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to tag manifest in staging store", err)
	}

	if _, err := oras.Copy(ctx, staging, tag, s.target, tag, oras.DefaultCopyOptions); err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to push artifact to registry", err,
			map[string]any{"tag": tag})
	}
	return nil
}

func (s *OCIStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	tag := tagFor(name)

	_, manifestBytes, err := oras.FetchBytes(ctx, s.target, tag, oras.DefaultFetchBytesOptions)
	if err != nil {
		if stderrors.Is(err, errdef.ErrNotFound) {
			return nil, notFound(name)
		}
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to fetch manifest", err,
			map[string]any{"tag": tag})
	}

	var manifest ociv1.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to decode manifest", err)
	}
	if len(manifest.Layers) != 1 {
		return nil, errors.NewWithContext(errors.ErrCodeInternal,
			fmt.Sprintf("expected a single layer, found %d", len(manifest.Layers)), map[string]any{"tag": tag})
	}

	b, err := content.FetchAll(ctx, s.target, manifest.Layers[0])
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to fetch artifact layer", err)
	}
	return b, nil
}

// newAuthClient creates an HTTP client with optional TLS configuration and
// Docker credential support.
func newAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, _ := credentials.NewStoreFromDocker(credentials.StoreOptions{})

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
