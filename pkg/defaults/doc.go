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

// Package defaults provides centralized timing constants for vetter.
//
// Values are grouped by concern:
//
//   - Observation: pod phase polling backoff and the bound on waiting for a
//     validation pod to become observable
//   - Kubernetes: per-call create and cleanup timeouts
//   - Promotion: promotion deadline and lock timing
//   - Reaping: sweep interval and environment TTL
//   - Server and HTTP client: request handling and outbound fetch timeouts
//
// Import and use constants directly:
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.PromotionTimeout)
//	defer cancel()
package defaults
