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

package cluster

import (
	"context"
	"fmt"
	"strings"

	authv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PermissionCheck represents a single permission check result.
type PermissionCheck struct {
	Group     string `json:"group,omitempty" yaml:"group,omitempty"`
	Resource  string `json:"resource" yaml:"resource"`
	Verb      string `json:"verb" yaml:"verb"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Allowed   bool   `json:"allowed" yaml:"allowed"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type requirement struct {
	group     string
	resource  string
	verb      string
	namespace string
}

// pipelineRequirements lists what a full run needs: ephemeral namespaces and
// pods for validation, workload objects in the production namespace.
func pipelineRequirements(productionNamespace string) []requirement {
	return []requirement{
		{"", "namespaces", "create", ""},
		{"", "namespaces", "list", ""},
		{"", "namespaces", "delete", ""},
		{"", "pods", "create", ""},
		{"", "pods", "get", ""},
		{"", "pods/log", "get", ""},
		{"apps", "deployments", "create", productionNamespace},
		{"", "services", "create", productionNamespace},
		{"autoscaling", "horizontalpodautoscalers", "create", productionNamespace},
	}
}

// CheckPermissions verifies the current identity can perform every action the
// pipeline takes. It returns all checks and an error listing any that are
// denied.
func (k *Kube) CheckPermissions(ctx context.Context, productionNamespace string) ([]PermissionCheck, error) {
	reqs := pipelineRequirements(productionNamespace)
	checks := make([]PermissionCheck, 0, len(reqs))

	var missing []string
	for _, r := range reqs {
		allowed, reason, err := k.checkPermission(ctx, r)
		if err != nil {
			return checks, fmt.Errorf("failed to check permission for %s %s: %w", r.verb, r.resource, err)
		}

		checks = append(checks, PermissionCheck{
			Group:     r.group,
			Resource:  r.resource,
			Verb:      r.verb,
			Namespace: r.namespace,
			Allowed:   allowed,
			Reason:    reason,
		})

		if !allowed {
			scope := "all namespaces"
			if r.namespace != "" {
				scope = fmt.Sprintf("namespace %q", r.namespace)
			}
			missing = append(missing, fmt.Sprintf("%s %s (%s)", r.verb, r.resource, scope))
		}
	}

	if len(missing) > 0 {
		return checks, fmt.Errorf("missing required permissions:\n  - %s",
			strings.Join(missing, "\n  - "))
	}

	return checks, nil
}

func (k *Kube) checkPermission(ctx context.Context, r requirement) (bool, string, error) {
	resource, subresource, _ := strings.Cut(r.resource, "/")
	review := &authv1.SelfSubjectAccessReview{
		Spec: authv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authv1.ResourceAttributes{
				Group:       r.group,
				Verb:        r.verb,
				Resource:    resource,
				Subresource: subresource,
				Namespace:   r.namespace,
			},
		},
	}

	result, err := k.clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		return false, "", err
	}

	return result.Status.Allowed, result.Status.Reason, nil
}
