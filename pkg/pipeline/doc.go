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

// Package pipeline sequences an artifact through validation and promotion.
//
// A run moves through Provisioned, Deployed and Classified and ends in one of
// Promoted, PromotionFailed or ReportedFailure. A provisioning failure aborts
// the run and is returned as an error; it is the only failure that does not
// produce a Result. Deployment and observation errors become a failed
// outcome, and a failed outcome never reaches promotion.
//
// Entry points:
//   - Submit stores an upload, publishes it to source control and runs it.
//   - Trigger fetches the artifact for a pushed ref and runs it.
//   - Rerun runs the stored copy of an artifact.
//   - Run validates and promotes an artifact already in hand.
//
// Promotions are serialised through a lock.Locker keyed by the production
// namespace. Each stage is traced and timed.
package pipeline
