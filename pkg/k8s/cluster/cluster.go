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
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/vetter/pkg/defaults"
)

// Cluster is the subset of the Kubernetes control API the pipeline needs.
// Create calls return the API error unchanged (wrapped) so callers can test
// it with apierrors.IsAlreadyExists. Each create is bounded by
// defaults.K8sCreateTimeout and each delete by defaults.K8sCleanupTimeout.
type Cluster interface {
	// EnsureNamespace creates the namespace. AlreadyExists is success.
	EnsureNamespace(ctx context.Context, name string, labels map[string]string) error
	// ListNamespaces returns namespaces matching the label selector.
	ListNamespaces(ctx context.Context, selector string) ([]corev1.Namespace, error)
	// DeleteNamespace deletes the namespace. NotFound is success.
	DeleteNamespace(ctx context.Context, name string) error

	CreatePod(ctx context.Context, pod *corev1.Pod) error
	PodPhase(ctx context.Context, namespace, name string) (corev1.PodPhase, error)
	PodLogs(ctx context.Context, namespace, name, container string) (string, error)

	CreateDeployment(ctx context.Context, d *appsv1.Deployment) error
	CreateService(ctx context.Context, s *corev1.Service) error
	CreateHPA(ctx context.Context, h *autoscalingv1.HorizontalPodAutoscaler) error
}

// Kube implements Cluster over a client-go clientset.
type Kube struct {
	clientset      kubernetes.Interface
	createTimeout  time.Duration
	cleanupTimeout time.Duration
}

// NewKube returns a Cluster backed by the given clientset.
func NewKube(clientset kubernetes.Interface) *Kube {
	return &Kube{
		clientset:      clientset,
		createTimeout:  defaults.K8sCreateTimeout,
		cleanupTimeout: defaults.K8sCleanupTimeout,
	}
}

// Clientset exposes the underlying clientset for permission checks.
func (k *Kube) Clientset() kubernetes.Interface {
	return k.clientset
}

func (k *Kube) EnsureNamespace(ctx context.Context, name string, labels map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, k.createTimeout)
	defer cancel()

	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
	}
	_, err := k.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if err := ignoreAlreadyExists(err); err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

func (k *Kube) ListNamespaces(ctx context.Context, selector string) ([]corev1.Namespace, error) {
	list, err := k.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces (%s): %w", selector, err)
	}
	return list.Items, nil
}

func (k *Kube) DeleteNamespace(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, k.cleanupTimeout)
	defer cancel()

	err := k.clientset.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{})
	if err := ignoreNotFound(err); err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	return nil
}

func (k *Kube) CreatePod(ctx context.Context, pod *corev1.Pod) error {
	ctx, cancel := context.WithTimeout(ctx, k.createTimeout)
	defer cancel()

	if _, err := k.clientset.CoreV1().Pods(pod.Namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create pod %s/%s: %w", pod.Namespace, pod.Name, err)
	}
	return nil
}

func (k *Kube) PodPhase(ctx context.Context, namespace, name string) (corev1.PodPhase, error) {
	pod, err := k.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get pod %s/%s: %w", namespace, name, err)
	}
	return pod.Status.Phase, nil
}

// PodLogs reads the complete log of one container of the pod.
func (k *Kube) PodLogs(ctx context.Context, namespace, name, container string) (string, error) {
	req := k.clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{Container: container})

	logs, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to stream logs for pod %s/%s: %w", namespace, name, err)
	}
	defer logs.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, logs); err != nil {
		return "", fmt.Errorf("failed to read logs for pod %s/%s: %w", namespace, name, err)
	}

	return buf.String(), nil
}

func (k *Kube) CreateDeployment(ctx context.Context, d *appsv1.Deployment) error {
	ctx, cancel := context.WithTimeout(ctx, k.createTimeout)
	defer cancel()

	if _, err := k.clientset.AppsV1().Deployments(d.Namespace).Create(ctx, d, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create deployment %s/%s: %w", d.Namespace, d.Name, err)
	}
	return nil
}

func (k *Kube) CreateService(ctx context.Context, s *corev1.Service) error {
	ctx, cancel := context.WithTimeout(ctx, k.createTimeout)
	defer cancel()

	if _, err := k.clientset.CoreV1().Services(s.Namespace).Create(ctx, s, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create service %s/%s: %w", s.Namespace, s.Name, err)
	}
	return nil
}

func (k *Kube) CreateHPA(ctx context.Context, h *autoscalingv1.HorizontalPodAutoscaler) error {
	ctx, cancel := context.WithTimeout(ctx, k.createTimeout)
	defer cancel()

	if _, err := k.clientset.AutoscalingV1().HorizontalPodAutoscalers(h.Namespace).Create(ctx, h, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create hpa %s/%s: %w", h.Namespace, h.Name, err)
	}
	return nil
}

// ignoreAlreadyExists returns nil if the error is "already exists", otherwise returns the error.
func ignoreAlreadyExists(err error) error {
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	return err
}

// ignoreNotFound returns nil if the error is "not found", otherwise returns the error.
func ignoreNotFound(err error) error {
	if apierrors.IsNotFound(err) {
		return nil
	}
	return err
}
