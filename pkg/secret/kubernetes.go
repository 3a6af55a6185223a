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

package secret

import (
	"context"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/k8s/client"
)

// Kubernetes reads secrets from the keys of a single Secret object. Each
// lookup reads the object so rotated values are picked up.
type Kubernetes struct {
	clientset kubernetes.Interface
	namespace string
	name      string
}

// NewKubernetes returns a provider reading namespace/name.
func NewKubernetes(clientset kubernetes.Interface, namespace, name string) *Kubernetes {
	return &Kubernetes{clientset: clientset, namespace: namespace, name: name}
}

func (k *Kubernetes) GetSecret(ctx context.Context, name string) (string, error) {
	s, err := k.clientset.CoreV1().Secrets(k.namespace).Get(ctx, k.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return "", notFound(name, "kubernetes")
	}
	if err != nil {
		return "", errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to read secret object", err,
			map[string]any{"namespace": k.namespace, "secret": k.name})
	}

	if v, ok := s.Data[name]; ok && len(v) > 0 {
		return string(v), nil
	}
	// keys written from environment style names
	if v, ok := s.Data[strings.ReplaceAll(name, "-", "_")]; ok && len(v) > 0 {
		return string(v), nil
	}
	return "", notFound(name, "kubernetes")
}

// Provider types.
const (
	ProviderEnv        = "env"
	ProviderKubernetes = "kubernetes"
	ProviderChain      = "chain"
)

// Config selects and configures a Provider.
type Config struct {
	Provider string `yaml:"provider"`
	// EnvPrefix is prepended to environment variable names.
	EnvPrefix  string           `yaml:"envPrefix,omitempty"`
	Kubernetes KubernetesConfig `yaml:"kubernetes,omitempty"`
}

// KubernetesConfig locates the Secret object.
type KubernetesConfig struct {
	Namespace string `yaml:"namespace,omitempty"`
	Name      string `yaml:"name,omitempty"`
}

// NewProvider builds the provider named by cfg.Provider. An empty provider
// selects env. The kubernetes and chain providers use the shared kube client
// when clientset is nil.
func NewProvider(cfg Config, clientset kubernetes.Interface) (Provider, error) {
	kube := func() (Provider, error) {
		if cfg.Kubernetes.Namespace == "" || cfg.Kubernetes.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidRequest, "kubernetes secret namespace and name are required")
		}
		cs := clientset
		if cs == nil {
			shared, _, err := client.GetKubeClient()
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeUnavailable, "failed to get kubernetes client", err)
			}
			cs = shared
		}
		return NewKubernetes(cs, cfg.Kubernetes.Namespace, cfg.Kubernetes.Name), nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderEnv:
		return NewEnv(cfg.EnvPrefix), nil
	case ProviderKubernetes:
		return kube()
	case ProviderChain:
		k, err := kube()
		if err != nil {
			return nil, err
		}
		return Chain{NewEnv(cfg.EnvPrefix), k}, nil
	default:
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "unsupported secret provider",
			map[string]any{"provider": cfg.Provider})
	}
}
