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

// Package validation deploys an artifact into its ephemeral environment as a
// single pod and observes it.
//
// The pod phase is polled with jittered exponential backoff (1s doubling to a
// 10s cap by default) until the pod is Running, Succeeded or Failed, or the
// observation timeout elapses. The complete log is then read and handed back
// for classification.
package validation
