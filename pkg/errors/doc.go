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

// Package errors provides structured error types for better observability
// and programmatic error handling across the pipeline.
//
// Pipeline failures map onto codes: ErrCodeProvisioning aborts a run,
// while ErrCodeFetch, ErrCodeDeploy, ErrCodeObservation,
// ErrCodePromotionPartial and ErrCodeConflict are reported inside a
// structured run result.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeProvisioning,
//	    "failed to create namespace",
//	    apiErr,
//	    map[string]any{
//	        "namespace": ns,
//	    },
//	)
package errors
