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

package workload

import (
	"encoding/base64"
	"fmt"

	"github.com/distribution/reference"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/errors"
)

// Probe and port policy shared by validation pods and production workloads.
const (
	ContainerPort = 5000
	HealthPath    = "/api/health"

	LivenessInitialDelaySeconds  = 30
	LivenessPeriodSeconds        = 10
	ReadinessInitialDelaySeconds = 5
	ReadinessPeriodSeconds       = 5
)

// Volume layout and the payload hand-off between init and main container.
const (
	VolumeName = "shared-data"
	MountPath  = "/app"
	PayloadEnv = "ARTIFACT_PAYLOAD"
)

// Default images.
const (
	DefaultRuntimeImage = "python:3.12-slim"
	DefaultInitImage    = "busybox:1.36"
)

// Label keys.
const (
	LabelName = "app.kubernetes.io/name"
	LabelApp  = "app"
	LabelRun  = "vetter.nvidia.com/run"
)

// Images selects the container images for a workload.
type Images struct {
	// Runtime executes the script.
	Runtime string `yaml:"runtime"`
	// Init decodes the embedded payload into the shared volume.
	Init string `yaml:"init"`
}

// WithDefaults fills empty fields with the default images.
func (i Images) WithDefaults() Images {
	if i.Runtime == "" {
		i.Runtime = DefaultRuntimeImage
	}
	if i.Init == "" {
		i.Init = DefaultInitImage
	}
	return i
}

// ContainerName is the main container name for an app.
func ContainerName(app string) string {
	return app + "-container"
}

// PodSpec builds a pod spec that writes the artifact into the shared volume
// from an init container and runs it in the main container.
func PodSpec(a artifact.Artifact, images Images, restart corev1.RestartPolicy) corev1.PodSpec {
	images = images.WithDefaults()
	app := a.AppName()
	scriptPath := MountPath + "/" + a.Name

	mount := []corev1.VolumeMount{{Name: VolumeName, MountPath: MountPath}}

	return corev1.PodSpec{
		RestartPolicy: restart,
		Volumes: []corev1.Volume{{
			Name:         VolumeName,
			VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
		}},
		InitContainers: []corev1.Container{{
			Name:    app + "-payload",
			Image:   images.Init,
			Command: []string{"sh", "-c", fmt.Sprintf(`printf '%%s' "$%s" | base64 -d > '%s'`, PayloadEnv, scriptPath)},
			Env: []corev1.EnvVar{{
				Name:  PayloadEnv,
				Value: base64.StdEncoding.EncodeToString(a.Content),
			}},
			VolumeMounts: mount,
		}},
		Containers: []corev1.Container{{
			Name:         ContainerName(app),
			Image:        images.Runtime,
			Command:      []string{"python", scriptPath},
			VolumeMounts: mount,
			Ports: []corev1.ContainerPort{{
				ContainerPort: ContainerPort,
				Protocol:      corev1.ProtocolTCP,
			}},
			LivenessProbe:  healthProbe(LivenessInitialDelaySeconds, LivenessPeriodSeconds),
			ReadinessProbe: healthProbe(ReadinessInitialDelaySeconds, ReadinessPeriodSeconds),
		}},
	}
}

func healthProbe(delay, period int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: HealthPath,
				Port: intstr.FromInt32(ContainerPort),
			},
		},
		InitialDelaySeconds: delay,
		PeriodSeconds:       period,
	}
}

// ValidateImage checks that ref parses as a container image reference.
func ValidateImage(ref string) error {
	if ref == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "image reference is required")
	}
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInvalidRequest, "invalid image reference", err,
			map[string]any{"image": ref})
	}
	return nil
}
