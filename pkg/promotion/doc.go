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

// Package promotion deploys a validated artifact to the production namespace
// as a Deployment, a LoadBalancer Service and a CPU based
// HorizontalPodAutoscaler.
//
// Replica count, autoscaling bounds and ports are fixed policy. Each creation
// is attempted independently and recorded in a Report so partial promotions
// are visible to the caller.
package promotion
