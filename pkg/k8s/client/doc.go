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

// Package client builds Kubernetes clients for vetter.
//
// Two entry points are provided. GetKubeClient returns a process-wide
// singleton built with automatic kubeconfig discovery, used by the ConfigMap
// result writer. BuildKubeClientForContext builds a fresh client against an
// explicit kubeconfig and context, which the servers and CLI use to target the
// cluster named by the secret store:
//
//	kubeContext := ""
//	if client.ContextExists(kubeconfig, creds.ClusterName) {
//	    kubeContext = creds.ClusterName
//	}
//	cs, _, err := client.BuildKubeClientForContext(kubeconfig, kubeContext)
//
// # Discovery
//
// An empty kubeconfig path is resolved in order:
//  1. KUBECONFIG environment variable
//  2. ~/.kube/config (if it exists)
//  3. In-cluster configuration (service account)
//
// # Testing
//
// Interface is an alias of kubernetes.Interface so callers can be handed
// fake.NewClientset() in tests.
package client
