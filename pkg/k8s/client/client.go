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

package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Interface is an alias for kubernetes.Interface to allow easier mocking in tests.
// This enables using fake.NewClientset() which returns kubernetes.Interface.
type Interface = kubernetes.Interface

var (
	clientOnce   sync.Once
	cachedClient *kubernetes.Clientset
	cachedConfig *rest.Config
	clientErr    error
)

// GetKubeClient returns a singleton Kubernetes client, creating it on first call
// with automatic kubeconfig discovery and the current context.
//
// The ConfigMap result writer uses this; pipeline components receive their
// client explicitly from BuildKubeClientForContext instead.
func GetKubeClient() (Interface, *rest.Config, error) {
	clientOnce.Do(func() {
		cachedClient, cachedConfig, clientErr = BuildKubeClient("")
	})
	return cachedClient, cachedConfig, clientErr
}

// BuildKubeClient creates a Kubernetes client from the given kubeconfig file
// using its current context.
func BuildKubeClient(kubeconfig string) (*kubernetes.Clientset, *rest.Config, error) {
	return BuildKubeClientForContext(kubeconfig, "")
}

// BuildKubeClientForContext creates a Kubernetes client from the given
// kubeconfig file and context name.
//
// Parameters:
//   - kubeconfig: Path to kubeconfig file. If empty, uses automatic discovery:
//     1. KUBECONFIG environment variable
//     2. ~/.kube/config (if it exists)
//     3. In-cluster configuration (service account)
//   - kubeContext: Context to select. Empty uses the kubeconfig's current
//     context. Ignored for in-cluster configuration.
//
// The pipeline passes the resolved cluster identity as kubeContext when the
// kubeconfig knows it (see ContextExists), so the same binary can target the
// cluster named in the secret store.
func BuildKubeClientForContext(kubeconfig, kubeContext string) (*kubernetes.Clientset, *rest.Config, error) {
	kubeconfig = discoverKubeconfig(kubeconfig)

	var config *rest.Config
	var err error

	// Use InClusterConfig directly when no kubeconfig is available
	// This avoids the warning: "Neither --kubeconfig nor --master was specified"
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	} else {
		rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
		config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build kube config from %s (context %q): %w", kubeconfig, kubeContext, err)
		}
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return client, config, nil
}

// ContextExists reports whether the discovered kubeconfig defines the named context.
// It returns false when running in-cluster or when the kubeconfig cannot be read.
func ContextExists(kubeconfig, kubeContext string) bool {
	if kubeContext == "" {
		return false
	}
	kubeconfig = discoverKubeconfig(kubeconfig)
	if kubeconfig == "" {
		return false
	}
	cfg, err := clientcmd.LoadFromFile(kubeconfig)
	if err != nil {
		return false
	}
	_, ok := cfg.Contexts[kubeContext]
	return ok
}

func discoverKubeconfig(kubeconfig string) string {
	if kubeconfig != "" {
		return kubeconfig
	}
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	home := filepath.Join(homedir.HomeDir(), ".kube", "config")
	if _, err := os.Stat(home); os.IsNotExist(err) {
		return ""
	}
	return home
}
