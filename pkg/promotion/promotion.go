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

package promotion

import (
	"context"
	"fmt"
	"log/slog"

	appsv1 "k8s.io/api/apps/v1"
	autoscalingv1 "k8s.io/api/autoscaling/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/vetter/pkg/artifact"
	"github.com/NVIDIA/vetter/pkg/environment"
	"github.com/NVIDIA/vetter/pkg/errors"
	"github.com/NVIDIA/vetter/pkg/k8s/cluster"
	"github.com/NVIDIA/vetter/pkg/workload"
)

// Production policy.
const (
	DefaultNamespace = "production"

	Replicas       int32 = 2
	MinReplicas    int32 = 1
	MaxReplicas    int32 = 5
	TargetCPUPct   int32 = 70
	ServicePort    int32 = 80
	DefaultImage         = workload.DefaultRuntimeImage
	deploymentKind       = "Deployment"
)

// Step names in execution order.
const (
	StepNamespace  = "namespace"
	StepFetch      = "fetch"
	StepDeployment = "deployment"
	StepService    = "service"
	StepHPA        = "hpa"
)

// StepStatus is the result of a single promotion step.
type StepStatus string

const (
	StatusCreated  StepStatus = "created"
	StatusEnsured  StepStatus = "ensured"
	StatusFetched  StepStatus = "fetched"
	StatusFailed   StepStatus = "failed"
	StatusConflict StepStatus = "conflict"
)

// Step records one promotion action.
type Step struct {
	Name   string     `json:"name" yaml:"name"`
	Object string     `json:"object,omitempty" yaml:"object,omitempty"`
	Status StepStatus `json:"status" yaml:"status"`
	Error  string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report describes what a promotion did.
type Report struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	App       string `json:"app" yaml:"app"`
	Digest    string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Steps     []Step `json:"steps" yaml:"steps"`
}

func (r *Report) add(s Step) {
	r.Steps = append(r.Steps, s)
}

// Fetcher retrieves the authoritative artifact content from source control.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Config configures the production workload.
type Config struct {
	Namespace string `yaml:"namespace"`
	// Image runs the promoted script.
	Image string `yaml:"image"`
	// InitImage decodes the embedded script.
	InitImage string `yaml:"initImage"`
	// AllowSourceDrift promotes re-fetched content even when it differs from
	// the validated artifact.
	AllowSourceDrift bool `yaml:"allowSourceDrift"`
}

// WithDefaults fills empty fields.
func (c Config) WithDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.InitImage == "" {
		c.InitImage = workload.DefaultInitImage
	}
	return c
}

// Validate checks the image references.
func (c Config) Validate() error {
	c = c.WithDefaults()
	if err := workload.ValidateImage(c.Image); err != nil {
		return err
	}
	return workload.ValidateImage(c.InitImage)
}

func (c Config) images() workload.Images {
	return workload.Images{Runtime: c.Image, Init: c.InitImage}
}

// Deployer promotes validated artifacts to the production namespace.
type Deployer struct {
	cluster cluster.Cluster
	fetcher Fetcher
	config  Config
}

// NewDeployer returns a promotion Deployer.
func NewDeployer(c cluster.Cluster, f Fetcher, cfg Config) (*Deployer, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Deployer{cluster: c, fetcher: f, config: cfg}, nil
}

// Namespace returns the production namespace.
func (d *Deployer) Namespace() string {
	return d.config.Namespace
}

// Promote creates the production Deployment, Service and HPA for a validated
// artifact. The returned report is never nil.
//
// The production namespace is ensured first and the artifact is re-fetched
// from source; failure of either stops before any workload object is
// created. The three objects are then created independently and an existing
// object is recorded as a conflict. When some creations fail the error code
// is PROMOTION_PARTIAL, when all fail it is DEPLOY_FAILED. Nothing is rolled
// back.
func (d *Deployer) Promote(ctx context.Context, validated artifact.Artifact) (*Report, error) {
	app := validated.AppName()
	report := &Report{Namespace: d.config.Namespace, App: app}

	if err := environment.EnsureNamespace(ctx, d.cluster, d.config.Namespace); err != nil {
		report.add(Step{Name: StepNamespace, Object: d.config.Namespace, Status: StatusFailed, Error: err.Error()})
		return report, errors.WrapWithContext(errors.ErrCodeDeploy, "failed to ensure production namespace", err,
			map[string]any{"namespace": d.config.Namespace})
	}
	report.add(Step{Name: StepNamespace, Object: d.config.Namespace, Status: StatusEnsured})

	content, err := d.fetcher.Fetch(ctx, validated.Name)
	if err != nil {
		report.add(Step{Name: StepFetch, Object: validated.Name, Status: StatusFailed, Error: err.Error()})
		if errors.Is(err, errors.ErrCodeFetch) {
			return report, err
		}
		return report, errors.WrapWithContext(errors.ErrCodeFetch, "failed to re-fetch artifact", err,
			map[string]any{"name": validated.Name})
	}

	fetched := artifact.New(validated.Name, content)
	report.Digest = fetched.Digest().String()

	if !d.config.AllowSourceDrift && fetched.Digest() != validated.Digest() {
		msg := fmt.Sprintf("source digest %s differs from validated digest %s", fetched.Digest(), validated.Digest())
		report.add(Step{Name: StepFetch, Object: validated.Name, Status: StatusConflict, Error: msg})
		return report, errors.NewWithContext(errors.ErrCodeConflict, "source content differs from validated artifact",
			map[string]any{"name": validated.Name, "validated": validated.Digest().String(), "source": report.Digest})
	}
	report.add(Step{Name: StepFetch, Object: validated.Name, Status: StatusFetched})

	images := d.config.images()
	creates := []struct {
		step   string
		object string
		create func() error
	}{
		{StepDeployment, DeploymentName(app), func() error {
			return d.cluster.CreateDeployment(ctx, BuildDeployment(d.config.Namespace, fetched, images))
		}},
		{StepService, ServiceName(app), func() error {
			return d.cluster.CreateService(ctx, BuildService(d.config.Namespace, app))
		}},
		{StepHPA, HPAName(app), func() error {
			return d.cluster.CreateHPA(ctx, BuildHPA(d.config.Namespace, app))
		}},
	}

	var failed int
	for _, c := range creates {
		err := c.create()
		switch {
		case err == nil:
			report.add(Step{Name: c.step, Object: c.object, Status: StatusCreated})
		case apierrors.IsAlreadyExists(err):
			failed++
			report.add(Step{Name: c.step, Object: c.object, Status: StatusConflict, Error: err.Error()})
		default:
			failed++
			report.add(Step{Name: c.step, Object: c.object, Status: StatusFailed, Error: err.Error()})
		}
	}

	switch {
	case failed == 0:
		slog.Info("artifact promoted", "app", app, "namespace", d.config.Namespace, "digest", report.Digest)
		return report, nil
	case failed == len(creates):
		return report, errors.NewWithContext(errors.ErrCodeDeploy, "promotion failed",
			map[string]any{"app": app, "namespace": d.config.Namespace})
	default:
		return report, errors.NewWithContext(errors.ErrCodePromotionPartial,
			fmt.Sprintf("promotion partially applied: %d of %d objects failed", failed, len(creates)),
			map[string]any{"app": app, "namespace": d.config.Namespace})
	}
}

// DeploymentName is the production Deployment name for an app.
func DeploymentName(app string) string { return app + "-prod" }

// ServiceName is the production Service name for an app.
func ServiceName(app string) string { return app + "-service" }

// HPAName is the production HorizontalPodAutoscaler name for an app.
func HPAName(app string) string { return app + "-hpa" }

func selector(app string) map[string]string {
	return map[string]string{workload.LabelApp: app}
}

// BuildDeployment returns the production Deployment for a.
func BuildDeployment(namespace string, a artifact.Artifact, images workload.Images) *appsv1.Deployment {
	app := a.AppName()
	labels := selector(app)
	labels[workload.LabelName] = app

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:        DeploymentName(app),
			Namespace:   namespace,
			Labels:      labels,
			Annotations: map[string]string{"vetter.nvidia.com/digest": a.Digest().String()},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector(app)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       workload.PodSpec(a, images, corev1.RestartPolicyAlways),
			},
		},
	}
}

// BuildService returns the LoadBalancer Service exposing the app.
func BuildService(namespace, app string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(app),
			Namespace: namespace,
			Labels:    selector(app),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeLoadBalancer,
			Selector: selector(app),
			Ports: []corev1.ServicePort{{
				Port:       ServicePort,
				TargetPort: intstr.FromInt32(workload.ContainerPort),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

// BuildHPA returns the CPU based autoscaler for the app's Deployment.
func BuildHPA(namespace, app string) *autoscalingv1.HorizontalPodAutoscaler {
	return &autoscalingv1.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{
			Name:      HPAName(app),
			Namespace: namespace,
			Labels:    selector(app),
		},
		Spec: autoscalingv1.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv1.CrossVersionObjectReference{
				APIVersion: appsv1.SchemeGroupVersion.String(),
				Kind:       deploymentKind,
				Name:       DeploymentName(app),
			},
			MinReplicas:                    ptr.To(MinReplicas),
			MaxReplicas:                    MaxReplicas,
			TargetCPUUtilizationPercentage: ptr.To(TargetCPUPct),
		},
	}
}
