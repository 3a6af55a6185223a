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
	"path"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/errors"
)

// Artifact is an uploaded script. Its identity is its name.
type Artifact struct {
	Name    string `json:"name" yaml:"name"`
	Content []byte `json:"-" yaml:"-"`
}

// New returns an Artifact with a private copy of content.
func New(name string, content []byte) Artifact {
	c := make([]byte, len(content))
	copy(c, content)
	return Artifact{Name: name, Content: c}
}

// Digest returns the sha256 content digest.
func (a Artifact) Digest() digest.Digest {
	return digest.FromBytes(a.Content)
}

// AppName derives the workload name from the artifact name by dropping the
// extension: "helloworld.py" becomes "helloworld".
func (a Artifact) AppName() string {
	return AppName(a.Name)
}

// AppName is the package level form of Artifact.AppName.
func AppName(name string) string {
	base := path.Base(name)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.ToLower(strings.ReplaceAll(base, "_", "-"))
}

// ValidateSize rejects content larger than defaults.MaxArtifactBytes.
func ValidateSize(content []byte) error {
	if len(content) > defaults.MaxArtifactBytes {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "artifact exceeds size limit",
			map[string]any{"size": len(content), "limit": defaults.MaxArtifactBytes})
	}
	return nil
}

// ValidateName checks that name is a plain file name usable as a pod path
// segment and object key.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New(errors.ErrCodeInvalidRequest, "artifact name is required")
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "artifact name must be a plain file name",
			map[string]any{"name": name})
	case AppName(name) == "":
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "artifact name has no usable base name",
			map[string]any{"name": name})
	}
	return nil
}
