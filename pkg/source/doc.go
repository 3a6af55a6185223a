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

// Package source reads and publishes artifacts in source control.
//
// A Fetcher returns the authoritative content of an artifact, the copy a
// promotion re-reads before creating production resources. Two fetchers are
// provided: HTTPFetcher reads raw file URLs of a Gitea style host
// ({host}/{owner}/{repo}/raw/{ref}/{path}) with basic or token auth, and
// GitHubFetcher uses the repository contents API through go-github.
//
// A Publisher commits uploaded artifacts back to the tracked branch so that
// push webhooks can trigger runs for them. Every fetch failure is reported
// as a FETCH_FAILED structured error carrying the status and a body excerpt.
package source
