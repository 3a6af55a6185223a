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

// Package artifact holds the uploaded script type, the stores that persist it
// and the embedded catalog of known-good fixes.
//
// # Stores
//
// Store backends are selected by StoreConfig.Type:
//
//   - memory: process local map (default)
//   - file: one file per artifact under a directory
//   - s3: objects in an S3 compatible bucket (aws-sdk-go-v2)
//   - oci: single-layer OCI artifacts in a registry, tagged by name (ORAS)
//
// Putting a name that already exists supersedes the previous content. Get on
// an unknown name returns a NOT_FOUND structured error.
//
// # Known-good fixes
//
// Fixed returns the embedded corrected script for a name, served by the API
// as the fix suggestion for failed runs.
package artifact
