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

// Package k8s groups the Kubernetes integration used by vetter.
//
// # Sub-packages
//
// client: shared client-go clientset with in-cluster and kubeconfig discovery,
// plus context selection for multi-cluster kubeconfigs.
//
//	clientset, restConfig, err := client.GetKubeClient()
//
// cluster: the narrow Cluster interface the pipeline runs against. It covers
// namespaces, pods, logs, deployments, services and autoscalers, and is backed
// by a kubernetes.Interface so tests can use the fake clientset.
//
//	kube := cluster.NewKube(clientset)
//	checks, err := kube.CheckPermissions(ctx, "default")
//
// Both are safe for concurrent use.
package k8s
