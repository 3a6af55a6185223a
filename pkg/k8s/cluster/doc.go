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

// Package cluster is the thin Kubernetes control adapter used by the
// validation and promotion stages.
//
// Cluster covers namespace create/list/delete, validation pod create, phase
// and log reads, and creation of the production Deployment, Service and
// HorizontalPodAutoscaler. Kube implements it over client-go:
//
//	cs, _, err := client.BuildKubeClientForContext(kubeconfig, kubeContext)
//	if err != nil {
//	    return err
//	}
//	c := cluster.NewKube(cs)
//
// Namespace creation and deletion are idempotent. Workload creation is not:
// an existing object surfaces as an AlreadyExists API error which the
// promotion stage records as a conflict.
//
// CheckPermissions runs SelfSubjectAccessReviews for every verb the pipeline
// uses and is exposed as a preflight by the CLI.
package cluster
