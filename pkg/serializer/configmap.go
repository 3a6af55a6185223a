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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/NVIDIA/vetter/pkg/defaults"
	"github.com/NVIDIA/vetter/pkg/k8s/client"
)

// ConfigMapURIScheme prefixes ConfigMap output targets: cm://namespace/name.
const ConfigMapURIScheme = "cm://"

const fieldManager = "vetterctl"

// ConfigMapWriter stores serialized output in a ConfigMap using server-side
// apply, creating or replacing it.
type ConfigMapWriter struct {
	clientset kubernetes.Interface
	namespace string
	name      string
	format    Format
	now       func() time.Time
}

// NewConfigMapWriter returns a writer for namespace/name. A nil clientset
// uses the shared client from kubeconfig discovery on first write.
func NewConfigMapWriter(clientset kubernetes.Interface, namespace, name string, format Format) *ConfigMapWriter {
	return &ConfigMapWriter{
		clientset: clientset,
		namespace: namespace,
		name:      name,
		format:    normalize(format),
		now:       time.Now,
	}
}

// Serialize writes v to data key "result.<ext>" along with the format and a
// timestamp.
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	cs := w.clientset
	if cs == nil {
		var err error
		cs, _, err = client.GetKubeClient()
		if err != nil {
			return fmt.Errorf("failed to get kubernetes client: %w", err)
		}
	}

	content, err := Marshal(w.format, v)
	if err != nil {
		return err
	}

	cm := accorev1.ConfigMap(w.name, w.namespace).
		WithLabels(map[string]string{
			"app.kubernetes.io/name":       "vetter",
			"app.kubernetes.io/component":  "result",
			"app.kubernetes.io/managed-by": "vetter",
		}).
		WithData(map[string]string{
			"result." + w.format.Extension(): string(content),
			"format":                         string(w.format),
			"timestamp":                      w.now().UTC().Format(time.RFC3339),
		})

	slog.Debug("applying ConfigMap", "namespace", w.namespace, "name", w.name, "format", w.format)

	if _, err := cs.CoreV1().ConfigMaps(w.namespace).Apply(ctx, cm, metav1.ApplyOptions{
		FieldManager: fieldManager,
		Force:        true,
	}); err != nil {
		return fmt.Errorf("failed to apply ConfigMap %s/%s: %w", w.namespace, w.name, err)
	}
	return nil
}

// Close is a no-op.
func (w *ConfigMapWriter) Close() error {
	return nil
}

func parseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}
	namespace, name, ok := strings.Cut(strings.TrimPrefix(uri, ConfigMapURIScheme), "/")
	namespace, name = strings.TrimSpace(namespace), strings.TrimSpace(name)
	if !ok || namespace == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}
	return namespace, name, nil
}
