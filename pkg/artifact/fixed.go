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
	"embed"
	"path"
	"strings"
)

//go:embed fixes/*
var fixes embed.FS

// FixedArtifact is a known-good replacement served to callers whose upload
// failed validation.
type FixedArtifact struct {
	// Name is the artifact name the fix replaces.
	Name string
	// FileName is the suggested download name.
	FileName string
	Content  []byte
}

// Fixed looks up the known-good version of the named artifact.
func Fixed(name string) (FixedArtifact, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return FixedArtifact{}, false
	}
	b, err := fixes.ReadFile(path.Join("fixes", name))
	if err != nil {
		return FixedArtifact{}, false
	}
	ext := path.Ext(name)
	return FixedArtifact{
		Name:     name,
		FileName: strings.TrimSuffix(name, ext) + "_fixed" + ext,
		Content:  b,
	}, true
}

// FixedRef returns the API path of the fix for name, or "" when none exists.
func FixedRef(name string) string {
	if _, ok := Fixed(name); !ok {
		return ""
	}
	return "/api/fixed/" + name
}
